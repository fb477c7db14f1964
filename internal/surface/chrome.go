// File: internal/surface/chrome.go
package surface

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/formpilot/formpilot/api/schemas"
)

// controlTag is the attribute stamped on enumerated controls so a later Click
// can target exactly the element the locator scored, even when the page has
// no stable selectors of its own.
const controlTag = "data-fp-ix"

// engineMarker wraps any in-page UI this engine injects; such controls are
// never click targets.
const engineMarker = ".formpilot-ui"

// chrome adapts the page's control tree to schemas.UIChrome.
type chrome struct {
	b *Browser
}

func (c *chrome) Route() schemas.Route {
	var parts []string
	c.b.quietRead(`(window.frappe && frappe.get_route) ? frappe.get_route().map(String) : []`, &parts)
	r := schemas.Route{}
	if len(parts) > 0 {
		r.View = parts[0]
	}
	if len(parts) > 1 {
		r.Doctype = parts[1]
	}
	if len(parts) > 2 {
		r.Name = parts[2]
	}
	return r
}

func (c *chrome) Title() string {
	var title string
	c.b.quietRead(`(() => {
		const t = document.title || "";
		const i = t.lastIndexOf(" - ");
		return i > 0 ? t.slice(0, i) : t;
	})()`, &title)
	return title
}

// controlWire is one enumerated page control.
type controlWire struct {
	Label       string `json:"label"`
	Index       int    `json:"index"`
	Visible     bool   `json:"visible"`
	EngineOwned bool   `json:"engine_owned"`
}

func (c *chrome) Controls() []schemas.Control {
	js := fmt.Sprintf(`(() => {
		const nodes = document.querySelectorAll(
			"button, a.btn, .btn, [role=button], .dropdown-item, .sidebar-action a");
		const out = [];
		let ix = 0;
		for (const el of nodes) {
			const label = (el.innerText || el.getAttribute("aria-label") || "").trim();
			if (!label) continue;
			el.setAttribute(%q, String(ix));
			const rect = el.getBoundingClientRect();
			const style = window.getComputedStyle(el);
			out.push({
				label: label,
				index: ix,
				visible: rect.width > 0 && rect.height > 0 &&
					style.visibility !== "hidden" && style.display !== "none",
				engine_owned: !!el.closest(%q)
			});
			ix++;
		}
		return out;
	})()`, controlTag, engineMarker)
	var wires []controlWire
	c.b.quietRead(js, &wires)

	out := make([]schemas.Control, 0, len(wires))
	for _, w := range wires {
		out = append(out, schemas.Control{
			Label:       w.Label,
			Selector:    fmt.Sprintf(`[%s="%d"]`, controlTag, w.Index),
			Visible:     w.Visible,
			EngineOwned: w.EngineOwned,
		})
	}
	return out
}

func (c *chrome) Query(selector string) bool {
	var matched bool
	c.b.quietRead(fmt.Sprintf(`!!document.querySelector(%q)`, selector), &matched)
	return matched
}

func (c *chrome) Click(ctx context.Context, ctl schemas.Control) error {
	if ctl.Selector == "" {
		return fmt.Errorf("control %q has no selector", ctl.Label)
	}
	opCtx, cancel := c.b.opCtx(ctx)
	defer cancel()
	if err := chromedp.Run(opCtx, chromedp.Click(ctl.Selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("clicking %q: %w", ctl.Label, err)
	}
	return nil
}

func (c *chrome) DialogText() string {
	var fragment string
	c.b.quietRead(`(() => {
		const body = document.querySelector(".modal.show .modal-body, .modal[style*='display: block'] .modal-body");
		return body ? body.innerHTML : "";
	})()`, &fragment)
	if fragment == "" {
		return ""
	}
	return flattenHTML(fragment)
}

func (c *chrome) DismissDialog(ctx context.Context) error {
	js := `(() => {
		const modal = document.querySelector(".modal.show, .modal[style*='display: block']");
		if (!modal) return false;
		const close = modal.querySelector(".btn-modal-close, [data-dismiss=modal], .modal-header .close");
		if (close) { close.click(); return true; }
		modal.classList.remove("show");
		modal.style.display = "none";
		return true;
	})()`
	var dismissed bool
	if err := c.b.eval(ctx, js, &dismissed); err != nil {
		return err
	}
	if !dismissed {
		return fmt.Errorf("no open dialog")
	}
	return nil
}

func (c *chrome) InlineErrors() []string {
	var fragments []string
	c.b.quietRead(`(() => {
		const nodes = document.querySelectorAll(
			".has-error .help-box, .invalid-feedback, .frappe-control.has-error [data-fieldname]");
		return Array.from(nodes).map(n => n.innerHTML).filter(h => h.trim());
	})()`, &fragments)
	var out []string
	for _, f := range fragments {
		if text := flattenHTML(f); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// scrollRegionWire pairs a region with its live geometry.
type scrollRegionWire struct {
	Name     string  `json:"name"`
	Position float64 `json:"position"`
	Max      float64 `json:"max"`
	Present  bool    `json:"present"`
}

// regionGeometry reports the scrollable containers in priority order: an open
// dialog body first, then the app's main content pane, then the page itself.
const regionGeometry = `(() => {
	const out = [];
	const modal = document.querySelector(".modal.show .modal-body");
	out.push(modal ? {
		name: "dialog", present: true,
		position: modal.scrollTop,
		max: Math.max(0, modal.scrollHeight - modal.clientHeight)
	} : { name: "dialog", present: false, position: 0, max: 0 });
	const main = document.querySelector(".main-section, .layout-main-section");
	out.push(main ? {
		name: "main", present: true,
		position: main.scrollTop,
		max: Math.max(0, main.scrollHeight - main.clientHeight)
	} : { name: "main", present: false, position: 0, max: 0 });
	const doc = document.documentElement;
	out.push({
		name: "page", present: true,
		position: window.scrollY,
		max: Math.max(0, doc.scrollHeight - window.innerHeight)
	});
	return out;
})()`

func (c *chrome) ScrollRegions() []schemas.ScrollRegion {
	var wires []scrollRegionWire
	c.b.quietRead(regionGeometry, &wires)
	var out []schemas.ScrollRegion
	for _, w := range wires {
		if !w.Present || w.Max <= 0 {
			continue
		}
		out = append(out, schemas.ScrollRegion{Name: w.Name, Position: w.Position, Max: w.Max})
	}
	return out
}

func (c *chrome) ScrollBy(ctx context.Context, region string, offset float64) error {
	js := fmt.Sprintf(`(() => {
		const opts = { top: %g, behavior: "smooth" };
		switch (%q) {
		case "dialog": {
			const modal = document.querySelector(".modal.show .modal-body");
			if (!modal) throw new Error("no open dialog");
			modal.scrollBy(opts);
			return;
		}
		case "main": {
			const main = document.querySelector(".main-section, .layout-main-section");
			if (!main) throw new Error("no main pane");
			main.scrollBy(opts);
			return;
		}
		default:
			window.scrollBy(opts);
		}
	})()`, offset, region)
	return c.b.eval(ctx, js, nil)
}

func (c *chrome) ScrollPosition(region string) float64 {
	var wires []scrollRegionWire
	c.b.quietRead(regionGeometry, &wires)
	for _, w := range wires {
		if w.Name == region {
			return w.Position
		}
	}
	return 0
}

func (c *chrome) ListCount() (int, bool) {
	var wire struct {
		Has bool `json:"has"`
		N   int  `json:"n"`
	}
	c.b.quietRead(`(() => {
		if (window.cur_list && Array.isArray(cur_list.data)) {
			return { has: true, n: cur_list.data.length };
		}
		const rows = document.querySelectorAll(".list-row-container");
		if (rows.length) return { has: true, n: rows.length };
		return { has: false, n: 0 };
	})()`, &wire)
	return wire.N, wire.Has
}

func (c *chrome) Widgets() (schemas.DashboardWidgets, bool) {
	var wire struct {
		Has       bool     `json:"has"`
		Shortcuts []string `json:"shortcuts"`
		Cards     []string `json:"cards"`
		Charts    []string `json:"charts"`
	}
	c.b.quietRead(`(() => {
		const titles = sel => Array.from(document.querySelectorAll(sel))
			.map(n => (n.innerText || "").trim()).filter(t => t);
		const shortcuts = titles(".shortcut-widget-box .widget-title");
		const cards = titles(".links-widget-box .widget-title");
		const charts = titles(".chart-widget-box .widget-title");
		const has = shortcuts.length + cards.length + charts.length > 0;
		return { has, shortcuts, cards, charts };
	})()`, &wire)
	if !wire.Has {
		return schemas.DashboardWidgets{}, false
	}
	return schemas.DashboardWidgets{
		Shortcuts: wire.Shortcuts,
		Cards:     wire.Cards,
		Charts:    wire.Charts,
	}, true
}

var _ schemas.UIChrome = (*chrome)(nil)
