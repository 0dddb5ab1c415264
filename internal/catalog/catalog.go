// Package catalog keeps the named speech styles used to steer generation.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"speechwriter/internal/speech"
)

var (
	ErrDuplicateStyle = errors.New("стиль уже существует")
	ErrStyleNotFound  = errors.New("стиль не найден")
)

// styleError names the offending style and matches its sentinel.
type styleError struct {
	kind error
	msg  string
}

func (e *styleError) Error() string { return e.msg }
func (e *styleError) Unwrap() error { return e.kind }

func duplicateStyle(name string) error {
	return &styleError{kind: ErrDuplicateStyle, msg: fmt.Sprintf("Стиль с именем '%s' уже существует", name)}
}

func styleNotFound(name string) error {
	return &styleError{kind: ErrStyleNotFound, msg: fmt.Sprintf("Стиль с именем '%s' не найден", name)}
}

// Store persists the whole catalog as one keyed record. Load returns an
// empty map when nothing has been saved yet.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, styles map[string]string) error
}

// Catalog applies add/update rules on top of a Store. Every operation reads
// the full record; every mutation rewrites it. Operations within one process
// are serialised; separate processes sharing a Store are last-writer-wins.
type Catalog struct {
	store Store
	mu    sync.Mutex
}

func New(store Store) *Catalog {
	return &Catalog{store: store}
}

// All returns the current name → description mapping.
func (c *Catalog) All(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Load(ctx)
}

// Add inserts styles in order. If any name is already present, including one
// repeated earlier in the same batch, nothing is saved.
func (c *Catalog) Add(ctx context.Context, styles []speech.Style) ([]speech.Style, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	added := make([]speech.Style, 0, len(styles))
	for _, style := range styles {
		if _, exists := current[style.Name]; exists {
			return nil, duplicateStyle(style.Name)
		}
		current[style.Name] = style.Description
		added = append(added, style)
	}
	if err := c.store.Save(ctx, current); err != nil {
		return nil, err
	}
	return added, nil
}

// Update replaces the description of an existing style.
func (c *Catalog) Update(ctx context.Context, style speech.Style) (speech.Style, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.store.Load(ctx)
	if err != nil {
		return speech.Style{}, err
	}
	if _, exists := current[style.Name]; !exists {
		return speech.Style{}, styleNotFound(style.Name)
	}
	current[style.Name] = style.Description
	if err := c.store.Save(ctx, current); err != nil {
		return speech.Style{}, err
	}
	return style, nil
}
