package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/go-pkgz/lgr"
	"github.com/invopop/jsonschema"

	"github.com/stelaras36/JobTracker/app/tracker"
)

// DefaultKey is the key the job list is stored under
const DefaultKey = "jobs_json"

// CorruptSuffix is appended to the key to keep a value that failed to decode
const CorruptSuffix = ".corrupt"

// ErrDecode returned when persisted value is not a valid job list
var ErrDecode = errors.New("can't decode jobs")

// Record is a persisted job entry. Ids are not persisted.
type Record struct {
	Title   string `json:"title" jsonschema:"description=job title"`
	Company string `json:"company" jsonschema:"description=company name"`
	Status  string `json:"status" jsonschema:"description=application status,enum=Wishlist,enum=Applied,enum=Interview,enum=Offer,enum=Rejected,default=Wishlist"`
}

// Encode serializes entries in their order, all three fields are always present
func Encode(entries []tracker.Entry) (string, error) {
	recs := make([]Record, 0, len(entries))
	for _, e := range entries {
		recs = append(recs, Record{Title: e.Title, Company: e.Company, Status: string(e.Status)})
	}
	data, err := json.Marshal(recs)
	if err != nil {
		return "", fmt.Errorf("failed to encode %d jobs: %w", len(entries), err)
	}
	return string(data), nil
}

// Decode parses persisted job list. Missing title or company decode to empty strings,
// missing status and status outside of the fixed set decode to tracker.StatusWishlist.
func Decode(data string) ([]tracker.Entry, error) {
	var recs []*struct {
		Title   string  `json:"title"`
		Company string  `json:"company"`
		Status  *string `json:"status"`
	}
	if err := json.Unmarshal([]byte(data), &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if recs == nil {
		return nil, fmt.Errorf("%w: null instead of array", ErrDecode)
	}

	res := make([]tracker.Entry, 0, len(recs))
	for i, r := range recs {
		if r == nil {
			return nil, fmt.Errorf("%w: job %d is null", ErrDecode, i)
		}
		e := tracker.Entry{Title: r.Title, Company: r.Company, Status: tracker.StatusWishlist}
		if r.Status != nil {
			if st := tracker.Status(*r.Status); st.Known() {
				e.Status = st
			} else {
				log.Printf("[WARN] invalid status %q for job %d (%s), using %s", *r.Status, i, r.Title, tracker.StatusWishlist)
			}
		}
		res = append(res, e)
	}
	return res, nil
}

// Load reads and decodes job list stored under key. Returns found=false if nothing
// or a blank value is stored. Decoding failure returned as ErrDecode.
func Load(ctx context.Context, kv KV, key string) (entries []tracker.Entry, found bool, err error) {
	value, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok || strings.TrimSpace(value) == "" {
		return nil, false, nil
	}
	entries, err = Decode(value)
	if err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// Quarantine copies the value stored under key to key+CorruptSuffix, so it survives
// the key being overwritten. Returns the key the value was copied to.
func Quarantine(ctx context.Context, kv KV, key string) (string, error) {
	value, ok, err := kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("nothing stored under %s", key)
	}
	target := key + CorruptSuffix
	if err := kv.Set(ctx, target, value); err != nil {
		return "", fmt.Errorf("failed to keep %s as %s: %w", key, target, err)
	}
	return target, nil
}

// Save encodes entries and stores them under key
func Save(ctx context.Context, kv KV, key string, entries []tracker.Entry) error {
	value, err := Encode(entries)
	if err != nil {
		return err
	}
	return kv.Set(ctx, key, value)
}

// Schema returns json schema of the persisted job list
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{DoNotReference: true}
	schema := r.Reflect([]Record{})
	schema.Title = "jobs"
	schema.Description = "job applications, most recent first"
	return json.MarshalIndent(schema, "", "  ")
}
