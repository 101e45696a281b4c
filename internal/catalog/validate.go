package catalog

import (
	"errors"
	"fmt"
)

// Validate checks the structural integrity of a catalog document.
// Item tokens are not checked here; unknown ones are ignored at play time.
func Validate(doc Document) error {
	var errs []error
	if len(doc.Regions) == 0 {
		errs = append(errs, errors.New("no regions"))
	}
	regionKeys := make(map[string]bool, len(doc.Regions))
	regionIDs := make(map[int]bool, len(doc.Regions))
	for _, r := range doc.Regions {
		if r.ID <= 0 {
			errs = append(errs, fmt.Errorf("region %q: id must be positive", r.Key))
		}
		if regionIDs[r.ID] {
			errs = append(errs, fmt.Errorf("region %d: duplicate id", r.ID))
		}
		if regionKeys[r.Key] {
			errs = append(errs, fmt.Errorf("region %q: duplicate key", r.Key))
		}
		regionIDs[r.ID] = true
		regionKeys[r.Key] = true
	}

	seen := make(map[string]bool, len(doc.Questions))
	for i, q := range doc.Questions {
		if q.ID == "" {
			errs = append(errs, fmt.Errorf("question %d: missing id", i))
			continue
		}
		if seen[q.ID] {
			errs = append(errs, fmt.Errorf("question %s: duplicate id", q.ID))
		}
		seen[q.ID] = true
		if !regionKeys[q.Region] {
			errs = append(errs, fmt.Errorf("question %s: unknown region %q", q.ID, q.Region))
		}
		if q.TimeLimit < 0 {
			errs = append(errs, fmt.Errorf("question %s: negative time limit", q.ID))
		}
		if len(q.Options) == 0 {
			errs = append(errs, fmt.Errorf("question %s: no options", q.ID))
		}
		optionIDs := make(map[string]bool, len(q.Options))
		for _, o := range q.Options {
			if o.ID == "" {
				errs = append(errs, fmt.Errorf("question %s: option without id", q.ID))
				continue
			}
			if optionIDs[o.ID] {
				errs = append(errs, fmt.Errorf("question %s: duplicate option %q", q.ID, o.ID))
			}
			optionIDs[o.ID] = true
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	return nil
}
