package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/searchstack/internal/config"
	"github.com/imamik/searchstack/internal/resource"
	"github.com/imamik/searchstack/internal/util/retry"
)

// RecordHandler manages cloudflare:dns:Record. An existing record with the
// same type and name is adopted and overwritten.
//
// Inputs: zoneId, type, name, content, proxied, ttl, comment.
// Outputs: id, zoneId, hostname, target.
type RecordHandler struct {
	client   *Client
	timeouts *config.Timeouts
}

// NewRecordHandler returns a handler backed by client.
func NewRecordHandler(client *Client, t *config.Timeouts) *RecordHandler {
	return &RecordHandler{client: client, timeouts: t}
}

// Register adds the DNS record handler to reg.
func Register(reg resource.Registry, client *Client, t *config.Timeouts) {
	reg.Register(resource.KindDNSRecord, NewRecordHandler(client, t))
}

// ReplaceOnChange implements resource.Replacer.
func (h *RecordHandler) ReplaceOnChange() []string { return []string{"zoneId", "type"} }

func recordFrom(p resource.Properties) (zoneID string, r Record, err error) {
	zoneID = p.String("zoneId")
	r = Record{
		Type:    p.String("type"),
		Name:    p.String("name"),
		Content: p.String("content"),
		Proxied: p.Bool("proxied"),
		TTL:     p.Int("ttl"),
		Comment: p.String("comment"),
	}
	switch {
	case zoneID == "":
		return "", Record{}, errors.New(`input "zoneId" is required`)
	case r.Name == "":
		return "", Record{}, errors.New(`input "name" is required`)
	case r.Content == "":
		return "", Record{}, errors.New(`input "content" is required`)
	}
	if r.Type == "" {
		r.Type = "CNAME"
	}
	if r.TTL == 0 || r.Proxied {
		r.TTL = AutoTTL
	}
	return zoneID, r, nil
}

func recordOutputs(zoneID string, r *Record) resource.Properties {
	return resource.Properties{
		resource.OutputID: r.ID,
		"zoneId":          zoneID,
		"hostname":        r.Name,
		"target":          r.Content,
	}
}

// withRetry runs fn within timeout, retrying rate limits and server errors.
func (h *RecordHandler) withRetry(ctx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return retry.WithExponentialBackoff(ctx, func() error { return fn(ctx) },
		retry.WithMaxRetries(h.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(h.timeouts.RetryInitialDelay),
		retry.WithMaxDelay(h.timeouts.RetryMaxDelay),
		retry.WithRetryIf(IsTemporary),
	)
}

// Create implements resource.Handler.
func (h *RecordHandler) Create(ctx context.Context, req *resource.CreateRequest) (*resource.Result, error) {
	zoneID, want, err := recordFrom(req.Inputs)
	if err != nil {
		return nil, err
	}

	var rec *Record
	err = h.withRetry(ctx, h.timeouts.Create, func(ctx context.Context) error {
		existing, ferr := h.client.FindRecord(ctx, zoneID, want.Type, want.Name)
		var cerr error
		switch {
		case errors.Is(ferr, ErrNotFound):
			rec, cerr = h.client.CreateDNSRecord(ctx, zoneID, want)
			return cerr
		case ferr != nil:
			return ferr
		case existing.ID == req.ReplacingID:
			// The instance being replaced cannot be adopted.
			return retry.Fatal(fmt.Errorf("%s record %s already exists as %s", want.Type, want.Name, existing.ID))
		}
		rec, cerr = h.client.UpdateDNSRecord(ctx, zoneID, existing.ID, want)
		return cerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record %s: %w", want.Type, want.Name, err)
	}
	return &resource.Result{ID: rec.ID, Outputs: recordOutputs(zoneID, rec)}, nil
}

// Update implements resource.Handler.
func (h *RecordHandler) Update(ctx context.Context, req *resource.UpdateRequest) (*resource.Result, error) {
	zoneID, want, err := recordFrom(req.Inputs)
	if err != nil {
		return nil, err
	}
	var rec *Record
	err = h.withRetry(ctx, h.timeouts.Create, func(ctx context.Context) error {
		var uerr error
		rec, uerr = h.client.UpdateDNSRecord(ctx, zoneID, req.ID, want)
		return uerr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update record %s: %w", req.ID, err)
	}
	return &resource.Result{ID: rec.ID, Outputs: recordOutputs(zoneID, rec)}, nil
}

// Delete implements resource.Handler. A record that is already gone counts
// as deleted.
func (h *RecordHandler) Delete(ctx context.Context, req *resource.DeleteRequest) error {
	zoneID := req.Outputs.String("zoneId")
	if zoneID == "" {
		return fmt.Errorf("record %s has no recorded zone", req.ID)
	}
	err := h.withRetry(ctx, h.timeouts.Delete, func(ctx context.Context) error {
		return h.client.DeleteDNSRecord(ctx, zoneID, req.ID)
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete record %s: %w", req.ID, err)
	}
	return nil
}

// Read implements resource.Reader.
func (h *RecordHandler) Read(ctx context.Context, id string, outputs resource.Properties) (resource.Properties, bool, error) {
	rec, err := h.client.GetDNSRecord(ctx, outputs.String("zoneId"), id)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read record %s: %w", id, err)
	}
	return recordOutputs(outputs.String("zoneId"), rec), true, nil
}
