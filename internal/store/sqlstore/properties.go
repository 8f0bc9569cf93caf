package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/relata/relata/internal/model"
)

type properties struct{ r *runner }

func (p *properties) CreateDefinition(ctx context.Context, d *model.PropertyDefinition) (*model.PropertyDefinition, error) {
	out := *d
	if out.CreationTime.IsZero() {
		out.CreationTime = time.Now().UTC()
	}
	_, err := p.r.exec(ctx, `
        INSERT INTO contact_property_definitions (workspace_id, key, label, type, options, required, creation_time)
        VALUES (?,?,?,?,?,?,?)
    `, out.WorkspaceID, out.Key, out.Label, string(out.Type), marshalJSON(out.Options), out.Required, fmtTime(out.CreationTime))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *properties) GetDefinition(ctx context.Context, workspaceID, key string) (*model.PropertyDefinition, error) {
	row := p.r.queryRow(ctx, `
        SELECT workspace_id, key, label, type, options, required, creation_time
        FROM contact_property_definitions WHERE workspace_id=? AND key=?
    `, workspaceID, key)
	return scanDefinition(row.Scan)
}

func (p *properties) ListDefinitions(ctx context.Context, workspaceID string) ([]*model.PropertyDefinition, error) {
	rows, err := p.r.query(ctx, `
        SELECT workspace_id, key, label, type, options, required, creation_time
        FROM contact_property_definitions WHERE workspace_id=? ORDER BY key ASC
    `, workspaceID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []*model.PropertyDefinition
	for rows.Next() {
		d, err := scanDefinition(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *properties) AppendValue(ctx context.Context, v *model.PropertyValue) (*model.PropertyValue, error) {
	out := *v
	if out.ValueID == "" {
		out.ValueID = uuid.New().String()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	// The null sentinel (cleared value) is stored as SQL NULL.
	var raw interface{}
	if out.Value != nil {
		b, err := json.Marshal(out.Value)
		if err != nil {
			return nil, err
		}
		raw = string(b)
	}
	_, err := p.r.exec(ctx, `
        INSERT INTO property_values (workspace_id, value_id, contact_id, property_key, value, created_at)
        VALUES (?,?,?,?,?,?)
    `, out.WorkspaceID, out.ValueID, out.ContactID, out.PropertyKey, raw, fmtTime(out.CreatedAt))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LatestValue returns the newest history row for the key, nil when no row
// exists. A cleared value comes back as a row with Value == nil.
func (p *properties) LatestValue(ctx context.Context, workspaceID, contactID, key string) (*model.PropertyValue, error) {
	row := p.r.queryRow(ctx, `
        SELECT workspace_id, value_id, contact_id, property_key, value, created_at
        FROM property_values
        WHERE workspace_id=? AND contact_id=? AND property_key=?
        ORDER BY created_at DESC, value_id DESC LIMIT 1
    `, workspaceID, contactID, key)
	v, err := scanValue(row.Scan)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

func (p *properties) CurrentValues(ctx context.Context, workspaceID, contactID string) (map[string]interface{}, error) {
	rows, err := p.r.query(ctx, `
        SELECT workspace_id, value_id, contact_id, property_key, value, created_at
        FROM property_values
        WHERE workspace_id=? AND contact_id=?
        ORDER BY created_at ASC, value_id ASC
    `, workspaceID, contactID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := map[string]interface{}{}
	for rows.Next() {
		v, err := scanValue(rows.Scan)
		if err != nil {
			return nil, err
		}
		if v.Value == nil {
			delete(out, v.PropertyKey)
			continue
		}
		out[v.PropertyKey] = v.Value
	}
	return out, rows.Err()
}

func scanDefinition(scan func(dest ...interface{}) error) (*model.PropertyDefinition, error) {
	var d model.PropertyDefinition
	var typ, created string
	var options sql.NullString
	if err := scan(&d.WorkspaceID, &d.Key, &d.Label, &typ, &options, &d.Required, &created); err != nil {
		return nil, orNotFound(err)
	}
	d.Type = model.PropertyType(typ)
	d.CreationTime = parseTime(created)
	if options.Valid && options.String != "" {
		_ = json.Unmarshal([]byte(options.String), &d.Options)
	}
	return &d, nil
}

func scanValue(scan func(dest ...interface{}) error) (*model.PropertyValue, error) {
	var v model.PropertyValue
	var raw sql.NullString
	var created string
	if err := scan(&v.WorkspaceID, &v.ValueID, &v.ContactID, &v.PropertyKey, &raw, &created); err != nil {
		return nil, orNotFound(err)
	}
	v.CreatedAt = parseTime(created)
	if raw.Valid {
		_ = json.Unmarshal([]byte(raw.String), &v.Value)
	}
	return &v, nil
}
