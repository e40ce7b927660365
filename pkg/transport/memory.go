package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-artefacts/pkg/model"
)

// Collection seeds one in-memory resource collection.
type Collection struct {
	Path    string
	IDField string
	Items   []model.Item
	// Defaults fill keys missing from created items.
	Defaults model.Item
	// Stamp assigns fecha_creacion and fecha_actualizacion.
	Stamp bool
	// Validate runs on the merged item before create and update.
	Validate func(model.Item) error
}

type collection struct {
	Collection
	nextID int64
}

// Memory is an offline backend. It always confirms mutations on valid
// targets and applies no server-side filtering.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*collection
	documents   map[string]model.Item
	now         func() time.Time
}

var _ Transport = (*Memory)(nil)

// MemoryOption customises the offline backend.
type MemoryOption func(*Memory)

// WithCollection registers a collection at c.Path.
func WithCollection(c Collection) MemoryOption {
	return func(m *Memory) {
		key := cleanTarget(c.Path)
		if c.IDField == "" {
			c.IDField = "id"
		}
		col := &collection{Collection: c}
		col.Items = make([]model.Item, 0, len(c.Items))
		for _, item := range c.Items {
			col.Items = append(col.Items, item.Clone())
			if n, ok := numericID(item, c.IDField); ok && n > col.nextID {
				col.nextID = n
			}
		}
		m.collections[key] = col
	}
}

// WithDocument registers a read-only single resource.
func WithDocument(target string, item model.Item) MemoryOption {
	return func(m *Memory) {
		m.documents[cleanTarget(target)] = item.Clone()
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory builds an offline backend.
func NewMemory(options ...MemoryOption) *Memory {
	m := &Memory{
		collections: make(map[string]*collection),
		documents:   make(map[string]model.Item),
		now:         time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Do serves one request from memory.
func (m *Memory) Do(ctx context.Context, method, target string, body any) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TransportError{Method: method, Target: target, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cleanTarget(target)
	if doc, ok := m.documents[key]; ok {
		if method != http.MethodGet {
			return nil, m.fail(method, target, http.StatusMethodNotAllowed, "")
		}
		return encode(doc)
	}
	if col, ok := m.collections[key]; ok {
		switch method {
		case http.MethodGet:
			return encode(col.Items)
		case http.MethodPost:
			return m.create(col, method, target, body)
		default:
			return nil, m.fail(method, target, http.StatusMethodNotAllowed, "")
		}
	}

	parent, rawID := path.Split(key)
	col, ok := m.collections[strings.TrimSuffix(parent, "/")]
	if !ok || rawID == "" {
		return nil, m.fail(method, target, http.StatusNotFound, "Not Found")
	}
	if unescaped, err := url.PathUnescape(rawID); err == nil {
		rawID = unescaped
	}
	id, _ := model.NormalizeID(rawID)
	idx := col.find(id)
	if idx < 0 {
		return nil, m.fail(method, target, http.StatusNotFound, "Elemento no encontrado")
	}

	switch method {
	case http.MethodGet:
		return encode(col.Items[idx])
	case http.MethodPut, http.MethodPatch:
		return m.update(col, idx, method, target, body)
	case http.MethodDelete:
		col.Items = append(col.Items[:idx:idx], col.Items[idx+1:]...)
		return Payload{}, nil
	default:
		return nil, m.fail(method, target, http.StatusMethodNotAllowed, "")
	}
}

func (m *Memory) create(col *collection, method, target string, body any) (Payload, error) {
	values, err := decodeBody(body)
	if err != nil {
		return nil, m.fail(method, target, http.StatusUnprocessableEntity, err.Error())
	}
	item := make(model.Item, len(values)+len(col.Defaults)+3)
	for key, value := range col.Defaults {
		item[key] = value
	}
	for key, value := range values {
		if key == col.IDField {
			continue
		}
		item[key] = value
	}
	col.nextID++
	item[col.IDField] = col.nextID
	if col.Stamp {
		stamp := m.now().UTC().Format(time.RFC3339)
		item["fecha_creacion"] = stamp
		item["fecha_actualizacion"] = stamp
	}
	if err := m.validate(col, item, method, target); err != nil {
		col.nextID--
		return nil, err
	}
	col.Items = append(col.Items, item)
	return encode(item)
}

func (m *Memory) update(col *collection, idx int, method, target string, body any) (Payload, error) {
	values, err := decodeBody(body)
	if err != nil {
		return nil, m.fail(method, target, http.StatusUnprocessableEntity, err.Error())
	}
	item := col.Items[idx].Clone()
	for key, value := range values {
		if key == col.IDField {
			continue
		}
		item[key] = value
	}
	if col.Stamp {
		item["fecha_actualizacion"] = m.now().UTC().Format(time.RFC3339)
	}
	if err := m.validate(col, item, method, target); err != nil {
		return nil, err
	}
	col.Items[idx] = item
	return encode(item)
}

func (m *Memory) validate(col *collection, item model.Item, method, target string) error {
	if col.Validate == nil {
		return nil
	}
	err := col.Validate(item)
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		apiErr.Method, apiErr.Target = method, target
		return apiErr
	}
	return m.fail(method, target, http.StatusUnprocessableEntity, err.Error())
}

func (m *Memory) fail(method, target string, status int, message string) error {
	return &APIError{Method: method, Target: target, Status: status, Message: message}
}

func (c *collection) find(id model.ID) int {
	for idx, item := range c.Items {
		if itemID, ok := item.ID(c.IDField); ok && itemID == id {
			return idx
		}
	}
	return -1
}

func decodeBody(body any) (model.Item, error) {
	switch v := body.(type) {
	case nil:
		return model.Item{}, nil
	case model.Item:
		return v.Clone(), nil
	case map[string]any:
		return model.Item(v).Clone(), nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return model.DecodeItem(encoded)
}

func encode(value any) (Payload, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("transport: encode memory payload: %w", err)
	}
	return Payload(data), nil
}

func numericID(item model.Item, idField string) (int64, bool) {
	id, ok := item.ID(idField)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(id.String(), 10, 64)
	return n, err == nil
}

func cleanTarget(target string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(target))
	if cleaned == "/" {
		return cleaned
	}
	return strings.TrimSuffix(cleaned, "/")
}
