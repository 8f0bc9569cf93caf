package main

import (
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

var (
	apiFlag   string
	actorFlag string
	rootCmd   = &cobra.Command{
		Use:   "crmctl",
		Short: "CLI client for the CRM backend REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "CRM service base URL")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "Actor user ID attached to commands")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func client() *resty.Client {
	return resty.New().
		SetBaseURL(apiFlag).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
}

// doPost sends a JSON body and returns the raw response, failing on non-2xx.
func doPost(path string, payload interface{}) ([]byte, error) {
	resp, err := client().R().SetBody(payload).Post(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func doGet(path string, query map[string]string) ([]byte, error) {
	resp, err := client().R().SetQueryParams(query).Get(path)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

func printJSON(data []byte) {
	_, _ = fmt.Fprintln(os.Stdout, string(data))
}
