// internal/wizard/controller/collections.go
package controller

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"admissions-wizard/internal/models"
)

// ==========================
// Education entries
// ==========================

// AddEducationEntry appends an entry and returns its index.
func (c *Controller) AddEducationEntry(entry models.EducationEntry) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	c.record.EducationEntries = append(c.record.EducationEntries, entry)
	c.refreshRequirements(false)
	return len(c.record.EducationEntries) - 1, nil
}

func (c *Controller) UpdateEducationEntry(index int, entry models.EducationEntry) error {
	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.record.EducationEntries) {
		return fmt.Errorf("%w: education entry %d", ErrIndexOutOfRange, index)
	}
	c.record.EducationEntries[index] = entry
	c.refreshRequirements(false)
	return nil
}

// RemoveEducationEntry deletes the entry at index. Removing the only entry is
// a no-op; the list never becomes empty.
func (c *Controller) RemoveEducationEntry(index int) error {
	if c.closed {
		return ErrClosed
	}
	entries := c.record.EducationEntries
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("%w: education entry %d", ErrIndexOutOfRange, index)
	}
	if len(entries) == 1 {
		c.logger.Debug("refusing to remove last education entry", nil)
		return nil
	}
	c.record.EducationEntries = slices.Delete(slices.Clone(entries), index, index+1)
	c.refreshRequirements(false)
	return nil
}

// ==========================
// Work experience
// ==========================

// SetHasExperience seeds one empty entry when experience is first declared and
// clears every entry when it is withdrawn.
func (c *Controller) SetHasExperience(has bool) error {
	if c.closed {
		return ErrClosed
	}
	c.setHasExperience(has)
	return nil
}

func (c *Controller) setHasExperience(has bool) {
	r := &c.record
	switch {
	case has && !r.HasExperience:
		r.HasExperience = true
		if len(r.WorkExperiences) == 0 {
			r.WorkExperiences = []models.WorkExperience{{}}
		}
	case !has:
		r.HasExperience = false
		r.WorkExperiences = []models.WorkExperience{}
	}
}

// AddWorkExperience appends an entry, declaring experience if needed.
func (c *Controller) AddWorkExperience(w models.WorkExperience) (int, error) {
	if c.closed {
		return 0, ErrClosed
	}
	c.record.HasExperience = true
	c.record.WorkExperiences = append(c.record.WorkExperiences, normalizeWork(w))
	return len(c.record.WorkExperiences) - 1, nil
}

// UpdateWorkExperience replaces the entry at index. A currently-employed entry
// always has an empty end date.
func (c *Controller) UpdateWorkExperience(index int, w models.WorkExperience) error {
	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.record.WorkExperiences) {
		return fmt.Errorf("%w: work experience %d", ErrIndexOutOfRange, index)
	}
	c.record.WorkExperiences[index] = normalizeWork(w)
	return nil
}

func (c *Controller) RemoveWorkExperience(index int) error {
	if c.closed {
		return ErrClosed
	}
	if index < 0 || index >= len(c.record.WorkExperiences) {
		return fmt.Errorf("%w: work experience %d", ErrIndexOutOfRange, index)
	}
	c.record.WorkExperiences = slices.Delete(slices.Clone(c.record.WorkExperiences), index, index+1)
	return nil
}

func normalizeWork(w models.WorkExperience) models.WorkExperience {
	if w.CurrentlyEmployed {
		w.EndDate = ""
	}
	return w
}

// ==========================
// Visa rejection
// ==========================

// SetHasVisaRejection toggles the rejection flag; withdrawing it clears the
// countries and details.
func (c *Controller) SetHasVisaRejection(has bool) error {
	if c.closed {
		return ErrClosed
	}
	if has {
		c.record.VisaRejection.HasRejection = true
		return nil
	}
	c.record.VisaRejection = models.VisaRejection{}
	return nil
}

// AddRejectedCountry appends country. It reports false when the country was
// already listed and duplicates are not allowed.
func (c *Controller) AddRejectedCountry(country string) (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	country = strings.TrimSpace(country)
	if country == "" {
		return false, ErrBlankCountry
	}
	visa := &c.record.VisaRejection
	if !c.cfg.AllowDuplicateVisaCountries && containsFold(visa.Countries, country) {
		return false, nil
	}
	visa.HasRejection = true
	visa.Countries = append(visa.Countries, country)
	return true, nil
}

// RemoveRejectedCountry removes the first occurrence of country.
func (c *Controller) RemoveRejectedCountry(country string) (bool, error) {
	if c.closed {
		return false, ErrClosed
	}
	country = strings.TrimSpace(country)
	countries := c.record.VisaRejection.Countries
	for i, existing := range countries {
		if strings.EqualFold(existing, country) {
			c.record.VisaRejection.Countries = slices.Delete(slices.Clone(countries), i, i+1)
			return true, nil
		}
	}
	return false, nil
}

func (c *Controller) normalizeCountries(in []string) []string {
	out := make([]string, 0, len(in))
	for _, country := range in {
		country = strings.TrimSpace(country)
		if country == "" {
			continue
		}
		if !c.cfg.AllowDuplicateVisaCountries && containsFold(out, country) {
			continue
		}
		out = append(out, country)
	}
	return out
}

func containsFold(list []string, s string) bool {
	return slices.ContainsFunc(list, func(v string) bool { return strings.EqualFold(v, s) })
}

func sortedKeys(docs models.Documents) []string {
	return slices.Sorted(maps.Keys(docs))
}
