// internal/models/program.go
package models

// Program is the catalog entry an application is made for. Attributes are
// keyed name→options (level, duration, country, school); MetaData is keyed
// key→value (requirements HTML, application fee).
type Program struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Images     []string            `json:"images"`
	Attributes map[string][]string `json:"attributes"`
	MetaData   map[string]string   `json:"meta_data"`
}

const (
	AttrLevel    = "level"
	AttrDuration = "duration"
	AttrCountry  = "country"
	AttrSchool   = "school"

	MetaRequirements   = "requirements"
	MetaApplicationFee = "application_fee"
)

func (p *Program) attribute(name string) string {
	if p == nil || len(p.Attributes[name]) == 0 {
		return ""
	}
	return p.Attributes[name][0]
}

func (p *Program) Level() string    { return p.attribute(AttrLevel) }
func (p *Program) Duration() string { return p.attribute(AttrDuration) }
func (p *Program) Country() string  { return p.attribute(AttrCountry) }
func (p *Program) School() string   { return p.attribute(AttrSchool) }

// RequirementsHTML is rendered as-is by the confirmation step.
func (p *Program) RequirementsHTML() string {
	if p == nil {
		return ""
	}
	return p.MetaData[MetaRequirements]
}

func (p *Program) ApplicationFee() string {
	if p == nil {
		return ""
	}
	return p.MetaData[MetaApplicationFee]
}
