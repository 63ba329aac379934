// Package person is the person list and edit form store.
package person

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/adminstate/internal/model"
	"github.com/vyrodovalexey/adminstate/internal/state"
	"github.com/vyrodovalexey/adminstate/internal/transport"
	"github.com/vyrodovalexey/adminstate/internal/views"
)

// StoreName is the registry name of the person store.
const StoreName = "personStore"

// Person store fields.
const (
	FieldPersonList = "personList"
	FieldPerson     = "person"
)

const endpoint = "/person"

// ErrEmptyID is returned when an operation needs a person id.
var ErrEmptyID = errors.New("person id cannot be empty")

// Schema returns the person store's fields and their defaults.
func Schema() map[string]any {
	return map[string]any{
		FieldPersonList:   []any{},
		FieldPerson:       model.BlankPerson(),
		state.MetaField:   map[string]any{},
		state.ErrorsField: []string{},
	}
}

// View drives the person pages.
type View struct {
	manager  *state.Manager
	client   state.Requester
	notifier state.Notifier
	logger   *zap.Logger
}

// New builds the person store in registry.
func New(registry *state.Registry, client state.Requester, notifier state.Notifier, logger *zap.Logger) (*View, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = state.NopNotifier{}
	}

	m, err := state.New(registry, StoreName, Schema(),
		state.WithLogger(logger),
		state.WithNotifier(notifier),
		state.WithRequester(client),
	)
	if err != nil {
		return nil, fmt.Errorf("creating person store: %w", err)
	}

	return &View{manager: m, client: client, notifier: notifier, logger: logger}, nil
}

// Manager returns the person store's manager.
func (v *View) Manager() *state.Manager {
	return v.manager
}

// LoadPage fetches one page of persons into personList and meta.
func (v *View) LoadPage(ctx context.Context, page, perPage int) error {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		params.Set("perPage", strconv.Itoa(perPage))
	}

	return v.manager.FetchPaginatedData(ctx, state.PageRequest{
		Endpoint: endpoint,
		Field:    FieldPersonList,
		Params:   params,
	})
}

// Load fetches one person into the form.
func (v *View) Load(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}
	return v.manager.FetchAndUpdateState(ctx, endpoint+"/"+url.PathEscape(id))
}

// List returns the loaded page.
func (v *View) List() []map[string]any {
	value, _ := v.manager.Get(FieldPersonList)
	items, _ := value.([]any)

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if object, ok := item.(map[string]any); ok {
			out = append(out, object)
		}
	}
	return out
}

// Meta returns the pagination metadata of the loaded page.
func (v *View) Meta() (model.PageMeta, error) {
	value, _ := v.manager.Get(state.MetaField)
	var meta model.PageMeta
	if err := model.Convert(value, &meta); err != nil {
		return model.PageMeta{}, err
	}
	return meta, nil
}

// Current returns the person in the form.
func (v *View) Current() map[string]any {
	value, _ := v.manager.Get(FieldPerson)
	object, _ := value.(map[string]any)
	return object
}

// Edit sets one field of the form, e.g. Edit("email", "a@example.com").
func (v *View) Edit(field string, value any) error {
	return v.manager.SetState(FieldPerson+"."+field, value)
}

// New resets the form to a blank person.
func (v *View) New() error {
	return v.manager.SetFieldValue(FieldPerson, model.BlankPerson())
}

// Save creates the person in the form, or updates it when it has an id. The
// form is replaced with the server's copy.
func (v *View) Save(ctx context.Context) error {
	current := v.Current()
	id, _ := current["id"].(string)

	req := transport.Request{
		Endpoint:     endpoint,
		Method:       http.MethodPost,
		Data:         current,
		UseAuthToken: true,
	}
	if id != "" {
		req.Endpoint = endpoint + "/" + url.PathEscape(id)
		req.Method = http.MethodPut
	}

	resp, err := v.client.Do(ctx, req)
	if err != nil {
		views.Record(v.manager, "Error saving person", err)
		return fmt.Errorf("saving person: %w", err)
	}

	object, _ := resp.Data.(map[string]any)
	saved, ok := object[FieldPerson].(map[string]any)
	if !ok {
		v.manager.AddError("Error saving person: " + state.ErrInvalidResponseFormat.Error())
		return fmt.Errorf("saving person: %w", state.ErrInvalidResponseFormat)
	}
	if err := v.manager.SetFieldValue(FieldPerson, saved); err != nil {
		return err
	}

	v.logger.Info("person saved", zap.String("method", req.Method), zap.Any("id", saved["id"]))
	v.notifier.Success("Person saved")
	return nil
}

// Delete removes a person on the server and from the loaded page. A form
// showing that person is reset.
func (v *View) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	_, err := v.client.Do(ctx, transport.Request{
		Endpoint:     endpoint + "/" + url.PathEscape(id),
		Method:       http.MethodDelete,
		UseAuthToken: true,
	})
	if err != nil {
		views.Record(v.manager, "Error deleting person", err)
		return fmt.Errorf("deleting person %s: %w", id, err)
	}

	remaining := make([]any, 0)
	for _, item := range v.List() {
		if item["id"] != id {
			remaining = append(remaining, item)
		}
	}
	values := map[string]any{FieldPersonList: remaining}
	if current, _ := v.Current()["id"].(string); current == id {
		values[FieldPerson] = model.BlankPerson()
	}
	if err := v.manager.SetFieldsValue(values).Err(); err != nil {
		return err
	}

	v.notifier.Success("Person deleted")
	return nil
}
