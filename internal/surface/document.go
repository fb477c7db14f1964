// File: internal/surface/document.go
package surface

import (
	"context"
	"fmt"

	"github.com/formpilot/formpilot/api/schemas"
)

// docSurface adapts the page's open record editor (the cur_frm global) to
// schemas.DocumentSurface. It is a stateless handle; the editor itself lives
// in the page and may be replaced at any moment.
type docSurface struct {
	b *Browser
}

// fieldWire mirrors the subset of the host's field descriptor the engine
// consumes.
type fieldWire struct {
	Fieldname string `json:"fieldname"`
	Label     string `json:"label"`
	Fieldtype string `json:"fieldtype"`
	Reqd      int    `json:"reqd"`
	ReadOnly  int    `json:"read_only"`
	Default   string `json:"default"`
}

func (w fieldWire) meta() schemas.FieldMeta {
	return schemas.FieldMeta{
		Name:     w.Fieldname,
		Label:    w.Label,
		Type:     w.Fieldtype,
		Required: w.Reqd != 0,
		ReadOnly: w.ReadOnly != 0,
		Default:  w.Default,
	}
}

func metasOf(wires []fieldWire) []schemas.FieldMeta {
	out := make([]schemas.FieldMeta, 0, len(wires))
	for _, w := range wires {
		out = append(out, w.meta())
	}
	return out
}

// fieldProjection serializes a df descriptor into a fieldWire-shaped object.
const fieldProjection = `(df => ({
	fieldname: df.fieldname || "",
	label: df.label || "",
	fieldtype: df.fieldtype || "",
	reqd: df.reqd ? 1 : 0,
	read_only: df.read_only ? 1 : 0,
	default: df["default"] != null ? String(df["default"]) : ""
}))`

func (s *docSurface) Doctype() string {
	var dt string
	s.b.quietRead(`window.cur_frm ? String(cur_frm.doctype || "") : ""`, &dt)
	return dt
}

func (s *docSurface) RecordName() string {
	var name string
	s.b.quietRead(`(window.cur_frm && cur_frm.doc) ? String(cur_frm.doc.name || "") : ""`, &name)
	return name
}

func (s *docSurface) DocStatus() string {
	var status int
	s.b.quietRead(`(window.cur_frm && cur_frm.doc) ? (cur_frm.doc.docstatus || 0) : 0`, &status)
	switch status {
	case 1:
		return "Submitted"
	case 2:
		return "Cancelled"
	default:
		return "Draft"
	}
}

func (s *docSurface) Fields() []schemas.FieldMeta {
	js := fmt.Sprintf(`(() => {
		if (!window.cur_frm || !cur_frm.fields_dict) return [];
		const project = %s;
		return Object.values(cur_frm.fields_dict)
			.filter(f => f.df && f.df.fieldname)
			.map(f => project(f.df));
	})()`, fieldProjection)
	var wires []fieldWire
	s.b.quietRead(js, &wires)
	return metasOf(wires)
}

func (s *docSurface) Field(name string) (schemas.FieldMeta, bool) {
	js := fmt.Sprintf(`(() => {
		const f = window.cur_frm && cur_frm.fields_dict && cur_frm.fields_dict[%q];
		if (!f || !f.df) return null;
		return %s(f.df);
	})()`, name, fieldProjection)
	var wire *fieldWire
	s.b.quietRead(js, &wire)
	if wire == nil {
		return schemas.FieldMeta{}, false
	}
	return wire.meta(), true
}

func (s *docSurface) Value(name string) string {
	js := fmt.Sprintf(`(() => {
		const v = window.cur_frm && cur_frm.doc ? cur_frm.doc[%q] : null;
		return v == null ? "" : String(v);
	})()`, name)
	var v string
	s.b.quietRead(js, &v)
	return v
}

func (s *docSurface) SetValue(ctx context.Context, name, value string) error {
	js := fmt.Sprintf(`cur_frm.set_value(%q, %q)`, name, value)
	if err := s.b.evalAsync(ctx, js, nil); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

func (s *docSurface) RefreshField(ctx context.Context, name string) error {
	return s.b.eval(ctx, fmt.Sprintf(`cur_frm.refresh_field(%q)`, name), nil)
}

func (s *docSurface) FocusField(ctx context.Context, name string) error {
	js := fmt.Sprintf(`(() => {
		const f = cur_frm.fields_dict[%q];
		if (f && f.$input && f.$input.length) { f.$input.focus(); return true; }
		return false;
	})()`, name)
	var focused bool
	if err := s.b.eval(ctx, js, &focused); err != nil {
		return err
	}
	if !focused {
		return fmt.Errorf("field %s has no focusable input", name)
	}
	return nil
}

func (s *docSurface) MandatoryFields() []schemas.FieldMeta {
	js := fmt.Sprintf(`(() => {
		if (!window.cur_frm || !cur_frm.fields_dict) return [];
		const project = %s;
		return Object.values(cur_frm.fields_dict)
			.filter(f => f.df && f.df.fieldname && f.df.reqd)
			.map(f => project(f.df));
	})()`, fieldProjection)
	var wires []fieldWire
	s.b.quietRead(js, &wires)
	return metasOf(wires)
}

func (s *docSurface) TableFields() []schemas.FieldMeta {
	js := fmt.Sprintf(`(() => {
		if (!window.cur_frm || !cur_frm.fields_dict) return [];
		const project = %s;
		return Object.values(cur_frm.fields_dict)
			.filter(f => f.df && f.df.fieldtype === "Table")
			.map(f => project(f.df));
	})()`, fieldProjection)
	var wires []fieldWire
	s.b.quietRead(js, &wires)
	return metasOf(wires)
}

func (s *docSurface) TableRows(table string) []schemas.Row {
	js := fmt.Sprintf(`(() => {
		const rows = window.cur_frm && cur_frm.doc ? cur_frm.doc[%q] : null;
		if (!Array.isArray(rows)) return [];
		return rows.map(r => {
			const out = {};
			for (const [k, v] of Object.entries(r)) {
				if (v == null || typeof v === "object") continue;
				out[k] = String(v);
			}
			return out;
		});
	})()`, table)
	var rows []schemas.Row
	s.b.quietRead(js, &rows)
	return rows
}

func (s *docSurface) TableRowSchema(table string) []schemas.FieldMeta {
	js := fmt.Sprintf(`(() => {
		const f = window.cur_frm && cur_frm.fields_dict && cur_frm.fields_dict[%q];
		if (!f || !f.df || !f.df.options) return [];
		const meta = frappe.get_meta(f.df.options);
		if (!meta || !Array.isArray(meta.fields)) return [];
		const project = %s;
		return meta.fields.map(project);
	})()`, table, fieldProjection)
	var wires []fieldWire
	s.b.quietRead(js, &wires)
	return metasOf(wires)
}

func (s *docSurface) AddTableRow(ctx context.Context, table string) (int, error) {
	js := fmt.Sprintf(`(() => {
		cur_frm.add_child(%q);
		cur_frm.refresh_field(%q);
		return cur_frm.doc[%q].length;
	})()`, table, table, table)
	var count int
	if err := s.b.eval(ctx, js, &count); err != nil {
		return 0, fmt.Errorf("adding row to %s: %w", table, err)
	}
	return count, nil
}

func (s *docSurface) SetTableValue(ctx context.Context, table string, row int, field, value string) error {
	js := fmt.Sprintf(`(() => {
		const rows = cur_frm.doc[%q];
		if (!Array.isArray(rows) || rows.length < %d) {
			throw new Error("row out of range");
		}
		const r = rows[%d];
		return frappe.model.set_value(r.doctype, r.name, %q, %q);
	})()`, table, row, row-1, field, value)
	if err := s.b.evalAsync(ctx, js, nil); err != nil {
		return fmt.Errorf("writing %s row %d: %w", table, row, err)
	}
	return nil
}

var _ schemas.DocumentSurface = (*docSurface)(nil)
