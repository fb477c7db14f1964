// File: internal/mocks/mocks.go
// Package mocks provides stateful in-memory fakes of the host integration
// surfaces. They are mutex guarded so tests can mutate them from hooks while
// the engine reads them, mimicking the host's asynchronous behavior.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/formpilot/formpilot/api/schemas"
)

// -- Document Surface Fake --

// FakeSurface is an in-memory schemas.DocumentSurface.
type FakeSurface struct {
	mu sync.Mutex

	DocTypeName string
	Name        string
	Status      string

	FieldList  []schemas.FieldMeta
	Values     map[string]string
	Tables     map[string][]schemas.Row
	RowSchemas map[string][]schemas.FieldMeta

	SetValueErr error
	// SetValueHook runs under the lock after a successful write, letting a
	// test simulate host-side reactions to the mutation.
	SetValueHook func(name, value string)

	SetCalls     []string
	RefreshCalls []string
	FocusCalls   []string
}

// NewFakeSurface builds a surface for a doctype with the given fields.
func NewFakeSurface(doctype, name string, fields ...schemas.FieldMeta) *FakeSurface {
	return &FakeSurface{
		DocTypeName: doctype,
		Name:        name,
		Status:      "Draft",
		FieldList:   fields,
		Values:      make(map[string]string),
		Tables:      make(map[string][]schemas.Row),
		RowSchemas:  make(map[string][]schemas.FieldMeta),
	}
}

func (s *FakeSurface) Doctype() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DocTypeName
}

func (s *FakeSurface) RecordName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Name
}

func (s *FakeSurface) DocStatus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Status
}

func (s *FakeSurface) Fields() []schemas.FieldMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schemas.FieldMeta, len(s.FieldList))
	copy(out, s.FieldList)
	return out
}

func (s *FakeSurface) Field(name string) (schemas.FieldMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.FieldList {
		if f.Name == name {
			return f, true
		}
	}
	return schemas.FieldMeta{}, false
}

func (s *FakeSurface) Value(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Values[name]
}

func (s *FakeSurface) SetValue(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SetCalls = append(s.SetCalls, name)
	if s.SetValueErr != nil {
		return s.SetValueErr
	}
	s.Values[name] = value
	if s.SetValueHook != nil {
		s.SetValueHook(name, value)
	}
	return nil
}

func (s *FakeSurface) RefreshField(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.RefreshCalls = append(s.RefreshCalls, name)
	return nil
}

func (s *FakeSurface) FocusField(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FocusCalls = append(s.FocusCalls, name)
	return nil
}

func (s *FakeSurface) MandatoryFields() []schemas.FieldMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schemas.FieldMeta
	for _, f := range s.FieldList {
		if f.Required {
			out = append(out, f)
		}
	}
	return out
}

func (s *FakeSurface) TableFields() []schemas.FieldMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []schemas.FieldMeta
	for _, f := range s.FieldList {
		if f.Type == "Table" {
			out = append(out, f)
		}
	}
	return out
}

func (s *FakeSurface) TableRows(table string) []schemas.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.Tables[table]
	out := make([]schemas.Row, len(rows))
	for i, r := range rows {
		cp := make(schemas.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}

func (s *FakeSurface) TableRowSchema(table string) []schemas.FieldMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.RowSchemas[table]
}

func (s *FakeSurface) AddTableRow(_ context.Context, table string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fieldByName(table); !ok {
		return 0, fmt.Errorf("no table field %q", table)
	}
	s.Tables[table] = append(s.Tables[table], schemas.Row{})
	return len(s.Tables[table]), nil
}

func (s *FakeSurface) SetTableValue(_ context.Context, table string, row int, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.Tables[table]
	if row < 1 || row > len(rows) {
		return fmt.Errorf("row %d out of range for %q", row, table)
	}
	rows[row-1][field] = value
	return nil
}

func (s *FakeSurface) fieldByName(name string) (schemas.FieldMeta, bool) {
	for _, f := range s.FieldList {
		if f.Name == name {
			return f, true
		}
	}
	return schemas.FieldMeta{}, false
}

// SetRows replaces a table's rows wholesale. Test setup helper.
func (s *FakeSurface) SetRows(table string, rows []schemas.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Tables[table] = rows
}

// -- UI Chrome Fake --

// FakeChrome is an in-memory schemas.UIChrome.
type FakeChrome struct {
	mu sync.Mutex

	CurrentRoute schemas.Route
	PageTitle    string
	ControlList  []schemas.Control

	// Selectors maps raw CSS selectors to Query results; QueryHook, when set,
	// takes precedence.
	Selectors map[string]bool
	QueryHook func(selector string) bool

	Dialog       string
	Inline       []string
	DismissErr   error
	DismissCalls int

	Regions []schemas.ScrollRegion
	// ScrollHook applies the offset; the default mutates the named region's
	// position, clamped to [0, Max].
	ScrollHook func(region string, offset float64)
	ScrollErr  error

	ListN   int
	HasList bool
	Dash    schemas.DashboardWidgets
	HasDash bool

	Clicked  []schemas.Control
	ClickErr error
}

// NewFakeChrome builds a chrome positioned at the given route.
func NewFakeChrome(route schemas.Route) *FakeChrome {
	return &FakeChrome{
		CurrentRoute: route,
		Selectors:    make(map[string]bool),
	}
}

func (c *FakeChrome) Route() schemas.Route {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentRoute
}

func (c *FakeChrome) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.PageTitle
}

func (c *FakeChrome) Controls() []schemas.Control {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.Control, len(c.ControlList))
	copy(out, c.ControlList)
	return out
}

func (c *FakeChrome) Query(selector string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QueryHook != nil {
		return c.QueryHook(selector)
	}
	return c.Selectors[selector]
}

func (c *FakeChrome) Click(_ context.Context, ctl schemas.Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Clicked = append(c.Clicked, ctl)
	return c.ClickErr
}

func (c *FakeChrome) DialogText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Dialog
}

func (c *FakeChrome) DismissDialog(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DismissCalls++
	if c.DismissErr != nil {
		return c.DismissErr
	}
	c.Dialog = ""
	return nil
}

func (c *FakeChrome) InlineErrors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.Inline))
	copy(out, c.Inline)
	return out
}

func (c *FakeChrome) ScrollRegions() []schemas.ScrollRegion {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.ScrollRegion, len(c.Regions))
	copy(out, c.Regions)
	return out
}

func (c *FakeChrome) ScrollBy(_ context.Context, region string, offset float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ScrollErr != nil {
		return c.ScrollErr
	}
	if c.ScrollHook != nil {
		c.ScrollHook(region, offset)
		return nil
	}
	for i := range c.Regions {
		if c.Regions[i].Name != region {
			continue
		}
		pos := c.Regions[i].Position + offset
		if pos < 0 {
			pos = 0
		}
		if pos > c.Regions[i].Max {
			pos = c.Regions[i].Max
		}
		c.Regions[i].Position = pos
	}
	return nil
}

func (c *FakeChrome) ScrollPosition(region string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.Regions {
		if r.Name == region {
			return r.Position
		}
	}
	return 0
}

func (c *FakeChrome) ListCount() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ListN, c.HasList
}

func (c *FakeChrome) Widgets() (schemas.DashboardWidgets, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Dash, c.HasDash
}

// SetDialog swaps the modal text. Test helper.
func (c *FakeChrome) SetDialog(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Dialog = text
}

// -- Record Store Fake --

// FakeStore is an in-memory schemas.RecordStore.
type FakeStore struct {
	mu sync.Mutex

	// Records maps doctype to known record names, in list order.
	Records map[string][]string

	ListErr   error
	SearchErr error
	ExistsErr error

	SearchCalls []string
}

// NewFakeStore builds an empty store.
func NewFakeStore() *FakeStore {
	return &FakeStore{Records: make(map[string][]string)}
}

func (f *FakeStore) List(_ context.Context, doctype string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	names := f.Records[doctype]
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

func (f *FakeStore) Search(_ context.Context, doctype, text string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SearchCalls = append(f.SearchCalls, doctype+"/"+text)
	if f.SearchErr != nil {
		return nil, f.SearchErr
	}
	var out []string
	for _, name := range f.Records[doctype] {
		if limit > 0 && len(out) >= limit {
			break
		}
		if strings.Contains(strings.ToLower(name), strings.ToLower(text)) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (f *FakeStore) Exists(_ context.Context, doctype, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ExistsErr != nil {
		return false, f.ExistsErr
	}
	for _, n := range f.Records[doctype] {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// -- Host Fake --

// FakeHost wires the fakes together behind schemas.Host.
type FakeHost struct {
	mu sync.Mutex

	Surface *FakeSurface
	ChromeF *FakeChrome
	Store   *FakeStore

	NavigateErr error
	OpenErr     error
	Navigated   []schemas.Route
	Opened      []string

	// NavigateHook and OpenHook run under the lock and can swap Surface or
	// adjust ChromeF to simulate the host reacting to routing.
	NavigateHook func(route schemas.Route)
	OpenHook     func(doctype string)
}

// NewFakeHost builds a host with an empty chrome and store and no open
// editor.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		ChromeF: NewFakeChrome(schemas.Route{View: "Workspace"}),
		Store:   NewFakeStore(),
	}
}

func (h *FakeHost) CurrentSurface() schemas.DocumentSurface {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.Surface == nil {
		return nil
	}
	return h.Surface
}

func (h *FakeHost) Chrome() schemas.UIChrome { return h.ChromeF }

func (h *FakeHost) Records() schemas.RecordStore { return h.Store }

func (h *FakeHost) Navigate(_ context.Context, route schemas.Route) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Navigated = append(h.Navigated, route)
	if h.NavigateErr != nil {
		return h.NavigateErr
	}
	h.ChromeF.mu.Lock()
	h.ChromeF.CurrentRoute = route
	h.ChromeF.mu.Unlock()
	if h.NavigateHook != nil {
		h.NavigateHook(route)
	}
	return nil
}

func (h *FakeHost) OpenNewRecord(_ context.Context, doctype string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Opened = append(h.Opened, doctype)
	if h.OpenErr != nil {
		return h.OpenErr
	}
	h.ChromeF.mu.Lock()
	h.ChromeF.CurrentRoute = schemas.Route{View: "Form", Doctype: doctype, Name: "new"}
	h.ChromeF.mu.Unlock()
	if h.OpenHook != nil {
		h.OpenHook(doctype)
	}
	return nil
}

// SwapSurface replaces the open editor. Do not call it from inside a
// NavigateHook or OpenHook; the lock is already held there.
func (h *FakeHost) SwapSurface(s *FakeSurface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Surface = s
}

// -- Planner Fake --

// PlannedResponse pairs a canned response with an optional error.
type PlannedResponse struct {
	Resp *schemas.PlanResponse
	Err  error
}

// FakePlanner replays canned responses in order.
type FakePlanner struct {
	mu        sync.Mutex
	Responses []PlannedResponse
	Requests  []schemas.PlanRequest
}

func (p *FakePlanner) Plan(_ context.Context, req schemas.PlanRequest) (*schemas.PlanResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Requests = append(p.Requests, req)
	if len(p.Responses) == 0 {
		return &schemas.PlanResponse{}, nil
	}
	next := p.Responses[0]
	p.Responses = p.Responses[1:]
	return next.Resp, next.Err
}

// -- Transcript Fake --

// FakeTranscript is an in-memory schemas.TranscriptStore.
type FakeTranscript struct {
	mu       sync.Mutex
	Messages map[string][]schemas.ChatMessage

	LoadErr  error
	SaveErr  error
	ClearErr error

	ClearCalls int
}

// NewFakeTranscript builds an empty transcript store.
func NewFakeTranscript() *FakeTranscript {
	return &FakeTranscript{Messages: make(map[string][]schemas.ChatMessage)}
}

func (t *FakeTranscript) Load(_ context.Context, key string) ([]schemas.ChatMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.LoadErr != nil {
		return nil, t.LoadErr
	}
	out := make([]schemas.ChatMessage, len(t.Messages[key]))
	copy(out, t.Messages[key])
	return out, nil
}

func (t *FakeTranscript) Save(_ context.Context, key string, msgs []schemas.ChatMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SaveErr != nil {
		return t.SaveErr
	}
	cp := make([]schemas.ChatMessage, len(msgs))
	copy(cp, msgs)
	t.Messages[key] = cp
	return nil
}

func (t *FakeTranscript) Clear(_ context.Context, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ClearCalls++
	if t.ClearErr != nil {
		return t.ClearErr
	}
	delete(t.Messages, key)
	return nil
}

// Interface conformance checks.
var (
	_ schemas.DocumentSurface = (*FakeSurface)(nil)
	_ schemas.UIChrome        = (*FakeChrome)(nil)
	_ schemas.RecordStore     = (*FakeStore)(nil)
	_ schemas.Host            = (*FakeHost)(nil)
	_ schemas.Planner         = (*FakePlanner)(nil)
	_ schemas.TranscriptStore = (*FakeTranscript)(nil)
)
