// File: internal/surface/store.go
package surface

import (
	"context"
	"fmt"

	"github.com/formpilot/formpilot/api/schemas"
)

// recordStore queries the host's record backend through the page's own
// authenticated client, so the engine inherits the signed-in user's
// permissions without holding credentials of its own.
type recordStore struct {
	b *Browser
}

func (r *recordStore) List(ctx context.Context, doctype string, limit int) ([]string, error) {
	js := fmt.Sprintf(`frappe.db.get_list(%q, { fields: ["name"], limit: %d })
		.then(rows => rows.map(r => String(r.name)))`, doctype, limit)
	var names []string
	if err := r.b.evalAsync(ctx, js, &names); err != nil {
		return nil, fmt.Errorf("listing %s: %w", doctype, err)
	}
	return names, nil
}

func (r *recordStore) Search(ctx context.Context, doctype, text string, limit int) ([]string, error) {
	js := fmt.Sprintf(`frappe.db.get_list(%q, {
		fields: ["name"],
		filters: [["name", "like", "%%" + %q + "%%"]],
		limit: %d
	}).then(rows => rows.map(r => String(r.name)))`, doctype, text, limit)
	var names []string
	if err := r.b.evalAsync(ctx, js, &names); err != nil {
		return nil, fmt.Errorf("searching %s: %w", doctype, err)
	}
	return names, nil
}

func (r *recordStore) Exists(ctx context.Context, doctype, name string) (bool, error) {
	js := fmt.Sprintf(`frappe.db.exists(%q, %q).then(v => !!v)`, doctype, name)
	var exists bool
	if err := r.b.evalAsync(ctx, js, &exists); err != nil {
		return false, fmt.Errorf("checking %s %q: %w", doctype, name, err)
	}
	return exists, nil
}

var _ schemas.RecordStore = (*recordStore)(nil)
