package tracker

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DemoEntries returns entries used to populate a store with nothing persisted
func DemoEntries() []Entry {
	return []Entry{
		{Title: "Android Developer", Company: "Yodeck", Status: StatusApplied},
		{Title: "Junior Software Engineer", Company: "Netcompany", Status: StatusWishlist},
		{Title: "Backend Developer Intern", Company: "Intralot", Status: StatusInterview},
	}
}

// seedFile is the yaml layout of a seed file:
//
//	jobs:
//	  - title: Backend Developer
//	    company: Acme
//	    status: Applied
type seedFile struct {
	Jobs []Entry `yaml:"jobs"`
}

// LoadSeed reads seed entries from a yaml file. Status defaults to StatusWishlist,
// entries without title or company are rejected.
func LoadSeed(path string) ([]Entry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from cli option
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}

	res := make([]Entry, 0, len(sf.Jobs))
	for i, e := range sf.Jobs {
		e.Title, e.Company = strings.TrimSpace(e.Title), strings.TrimSpace(e.Company)
		if e.Title == "" || e.Company == "" {
			return nil, fmt.Errorf("seed job %d: title and company required: %w", i+1, ErrValidation)
		}
		if e.Status == "" {
			e.Status = StatusWishlist
		}
		st, err := ParseStatus(string(e.Status))
		if err != nil {
			return nil, fmt.Errorf("seed job %d: %w", i+1, err)
		}
		e.Status = st
		res = append(res, e)
	}
	return res, nil
}
