package properties

import (
	"errors"
	"math"
	"testing"

	"github.com/relata/relata/internal/model"
)

func def(t model.PropertyType, opts ...string) *model.PropertyDefinition {
	return &model.PropertyDefinition{Key: "k", Type: t, Options: opts}
}

func TestValidateString(t *testing.T) {
	if v, err := Validate(def(model.PropertyString), "hello"); err != nil || v != "hello" {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := Validate(def(model.PropertyString), 42.0); !errors.Is(err, model.ErrInvalidPropertyValue) {
		t.Fatalf("number accepted as string: %v", err)
	}
}

func TestValidateNumber(t *testing.T) {
	if v, err := Validate(def(model.PropertyNumber), 1000.0); err != nil || v != 1000.0 {
		t.Fatalf("got %v, %v", v, err)
	}
	if v, err := Validate(def(model.PropertyNumber), 7); err != nil || v != 7.0 {
		t.Fatalf("int not accepted: %v, %v", v, err)
	}
	for _, bad := range []interface{}{"a", true, math.NaN(), math.Inf(1)} {
		if _, err := Validate(def(model.PropertyNumber), bad); !errors.Is(err, model.ErrInvalidPropertyValue) {
			t.Fatalf("%v accepted as number", bad)
		}
	}
}

func TestValidateBoolean(t *testing.T) {
	if v, err := Validate(def(model.PropertyBoolean), true); err != nil || v != true {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := Validate(def(model.PropertyBoolean), "true"); !errors.Is(err, model.ErrInvalidPropertyValue) {
		t.Fatalf("string accepted as boolean: %v", err)
	}
}

func TestValidateDateNormalizes(t *testing.T) {
	v, err := Validate(def(model.PropertyDate), "2025-06-15")
	if err != nil {
		t.Fatalf("date rejected: %v", err)
	}
	if v != "2025-06-15T00:00:00Z" {
		t.Fatalf("not normalized: %v", v)
	}
	if v, err := Validate(def(model.PropertyDate), "2025-06-15T10:30:00+02:00"); err != nil || v != "2025-06-15T08:30:00Z" {
		t.Fatalf("offset date: %v, %v", v, err)
	}
	if _, err := Validate(def(model.PropertyDate), "not-a-date"); !errors.Is(err, model.ErrInvalidPropertyValue) {
		t.Fatalf("garbage date accepted: %v", err)
	}
}

func TestValidateEnum(t *testing.T) {
	d := def(model.PropertyEnum, "gold", "silver")
	if v, err := Validate(d, "gold"); err != nil || v != "gold" {
		t.Fatalf("got %v, %v", v, err)
	}
	if _, err := Validate(d, "bronze"); !errors.Is(err, model.ErrInvalidPropertyValue) {
		t.Fatalf("unknown option accepted: %v", err)
	}
}

func TestValidateNilClears(t *testing.T) {
	for _, typ := range []model.PropertyType{model.PropertyString, model.PropertyNumber, model.PropertyDate} {
		if v, err := Validate(def(typ), nil); err != nil || v != nil {
			t.Fatalf("clear sentinel rejected for %s: %v, %v", typ, v, err)
		}
	}
}
