package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Source yields the raw catalog document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	String() string
}

// NewSource picks an HTTP source for http(s) locations and a file source otherwise.
func NewSource(location string) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return HTTPSource{URL: location, Timeout: 10 * time.Second}
	}
	return FileSource{Path: location}
}

type FileSource struct{ Path string }

func (s FileSource) String() string { return s.Path }

func (s FileSource) Fetch(ctx context.Context) ([]byte, error) {
	const op = "catalog.FileSource.Fetch"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	b, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return b, nil
}

type HTTPSource struct {
	URL     string
	Timeout time.Duration
}

func (s HTTPSource) String() string { return s.URL }

var ErrStatus = errors.New("unexpected status")

func (s HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	const op = "catalog.HTTPSource.Fetch"
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a := fiber.Get(s.URL)
	if s.Timeout > 0 {
		a.Timeout(s.Timeout)
	}
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s: %w", op, errors.Join(errs...))
	}
	if code != fiber.StatusOK {
		return nil, fmt.Errorf("%s: %w: %d", op, ErrStatus, code)
	}
	return body, nil
}
