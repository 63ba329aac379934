package state

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/transport"
)

// Requester performs a request against the admin API.
type Requester interface {
	Do(ctx context.Context, req transport.Request) (*transport.Response, error)
}

// PageRequest describes a paginated collection load.
type PageRequest struct {
	// Endpoint is the collection path, e.g. "/person".
	Endpoint string
	// Field receives the response's data array.
	Field string
	// Params are added to the query string.
	Params url.Values
}

// Fetch outcomes.
const (
	outcomeOK     = "ok"
	outcomeFailed = "failed"
)

// FetchAndUpdateState loads endpoint and merges the fields of the response
// object that the store declares. Unknown response fields are dropped.
//
// Transport and format failures are logged and recorded in the store's errors
// before being returned. Configuration errors are returned without being
// recorded.
func (m *Manager) FetchAndUpdateState(ctx context.Context, endpoint string) error {
	start := time.Now()
	outcome := outcomeFailed
	defer func() {
		storeFetchDuration.WithLabelValues(m.name, "fetch", outcome).Observe(time.Since(start).Seconds())
	}()

	if m.requester == nil {
		return ErrNoTransport
	}

	resp, err := m.requester.Do(ctx, transport.Request{
		Endpoint:     endpoint,
		Method:       http.MethodGet,
		UseAuthToken: true,
	})
	if err != nil {
		return m.fetchFailed(endpoint, err)
	}

	object, ok := resp.Data.(map[string]any)
	if !ok || object == nil {
		return m.fetchFailed(endpoint, ErrInvalidResponseFormat)
	}

	result := m.applyBatch(m.allowList(object))
	m.logger.Debug("state fetched",
		zap.String("endpoint", endpoint),
		zap.Stringer("result", result),
	)

	outcome = outcomeOK
	return nil
}

// FetchPaginatedData loads a collection page. The response's data array is
// stored under req.Field and its meta object under the meta field, when the
// store declares or already holds one. Missing data or meta is not an error.
func (m *Manager) FetchPaginatedData(ctx context.Context, req PageRequest) error {
	start := time.Now()
	outcome := outcomeFailed
	defer func() {
		storeFetchDuration.WithLabelValues(m.name, "paginate", outcome).Observe(time.Since(start).Seconds())
	}()

	if req.Endpoint == "" || req.Field == "" {
		return ErrInvalidPageRequest
	}
	if m.requester == nil {
		return ErrNoTransport
	}

	resp, err := m.requester.Do(ctx, transport.Request{
		Endpoint:     req.Endpoint,
		Method:       http.MethodGet,
		Params:       req.Params,
		UseAuthToken: true,
	})
	if err != nil {
		return m.fetchFailed(req.Endpoint, err)
	}

	values := make(map[string]any)
	if object, ok := resp.Data.(map[string]any); ok {
		if data, ok := object["data"].([]any); ok {
			values[req.Field] = data
		}
		if meta, ok := object[MetaField].(map[string]any); ok && m.hasField(MetaField) {
			values[MetaField] = meta
		}
	}

	result := m.applyBatch(values)
	m.logger.Debug("page fetched",
		zap.String("endpoint", req.Endpoint),
		zap.String("field", req.Field),
		zap.Stringer("result", result),
	)

	outcome = outcomeOK
	return nil
}

// hasField reports whether key is declared or present in the live container.
func (m *Manager) hasField(key string) bool {
	if _, declared := m.initial[key]; declared {
		return true
	}
	var present bool
	m.store.View(func(data map[string]any) {
		_, present = data[key]
	})
	return present
}

// allowList keeps the response fields declared in the schema. The errors
// field is never taken from a response.
func (m *Manager) allowList(object map[string]any) map[string]any {
	filtered := make(map[string]any)
	for key := range m.initial {
		if key == ErrorsField {
			continue
		}
		if value, ok := object[key]; ok {
			filtered[key] = value
		}
	}
	return filtered
}

func (m *Manager) fetchFailed(endpoint string, err error) error {
	if errors.Is(err, transport.ErrConfiguration) {
		m.logger.Error("fetch not attempted", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}

	m.logger.Error("fetch failed", zap.String("endpoint", endpoint), zap.Error(err))
	m.recordError(fmt.Sprintf("Error fetching data: %v", err))
	return fmt.Errorf("fetching %s: %w", endpoint, err)
}
