package xmatters

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/xmatters-sync/pkg/client"
	"github.com/Sternrassler/xmatters-sync/pkg/pagination"
)

// API is the part of the REST client the services need.
type API interface {
	GetJSON(ctx context.Context, path string, query url.Values, out any) error
	PostJSON(ctx context.Context, path string, in, out any) error
}

// Service groups the people, device and event endpoints.
type Service struct {
	api API
}

// NewService creates a service on top of api.
func NewService(api API) *Service {
	return &Service{api: api}
}

func list[T any](ctx context.Context, api API, path string, req pagination.PageRequest) (pagination.Page[T], error) {
	var page Page[T]
	if err := api.GetJSON(ctx, path, req.Values(), &page); err != nil {
		return pagination.Page[T]{}, fmt.Errorf("list %s (%s): %w", path, req, err)
	}
	return pagination.Page[T]{Records: page.Data, Total: page.Total}, nil
}

// ListPeople returns one page of people.
func (s *Service) ListPeople(ctx context.Context, req pagination.PageRequest) (pagination.Page[Person], error) {
	return list[Person](ctx, s.api, "people", req)
}

// GetPerson returns a person by id or targetName. Lookups go through the response cache.
func (s *Service) GetPerson(ctx context.Context, id string) (*Person, error) {
	var p Person
	if err := s.api.GetJSON(client.WithCache(ctx), "people/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, fmt.Errorf("get person %s: %w", id, err)
	}
	return &p, nil
}

// CreatePerson creates a person and returns the stored record.
func (s *Service) CreatePerson(ctx context.Context, p Person) (*Person, error) {
	var created Person
	if err := s.api.PostJSON(ctx, "people", p, &created); err != nil {
		return nil, fmt.Errorf("create person %s: %w", p.TargetName, err)
	}
	return &created, nil
}

// ModifyPerson applies u to an existing person.
func (s *Service) ModifyPerson(ctx context.Context, u PersonUpdate) (*Person, error) {
	var modified Person
	if err := s.api.PostJSON(ctx, "people", u, &modified); err != nil {
		return nil, fmt.Errorf("modify person %s: %w", u.ID, err)
	}
	return &modified, nil
}

// ListDevices returns one page of devices.
func (s *Service) ListDevices(ctx context.Context, req pagination.PageRequest) (pagination.Page[Device], error) {
	return list[Device](ctx, s.api, "devices", req)
}

// ModifyDevice applies u to an existing device.
func (s *Service) ModifyDevice(ctx context.Context, u DeviceUpdate) (*Device, error) {
	var modified Device
	if err := s.api.PostJSON(ctx, "devices", u, &modified); err != nil {
		return nil, fmt.Errorf("modify device %s: %w", u.ID, err)
	}
	return &modified, nil
}

// ListEvents returns one page of events.
func (s *Service) ListEvents(ctx context.Context, req pagination.PageRequest) (pagination.Page[Event], error) {
	return list[Event](ctx, s.api, "events", req)
}

// ListUserDeliveries returns one page of user deliveries for an event.
func (s *Service) ListUserDeliveries(ctx context.Context, eventID string, req pagination.PageRequest) (pagination.Page[Delivery], error) {
	return list[Delivery](ctx, s.api, "events/"+url.PathEscape(eventID)+"/user-deliveries", req)
}

// UserDeliveries binds ListUserDeliveries to one event.
func (s *Service) UserDeliveries(eventID string) pagination.PageFunc[Delivery] {
	return func(ctx context.Context, req pagination.PageRequest) (pagination.Page[Delivery], error) {
		return s.ListUserDeliveries(ctx, eventID, req)
	}
}
