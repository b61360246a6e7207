// Package master holds the statement keywords used to locate tables and the
// account captions recognized inside them.
package master

import (
	_ "embed"
	"os"
	"slices"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/edinet-cli/internal/model"
)

//go:embed master.yaml
var defaultMaster []byte

// Balance sheet subject ids completed when a filer omits the line.
const (
	SubjectTotalInvestmentsAndOtherAssets = "4"
	SubjectTotalCurrentLiabilities        = "8"
	SubjectTotalFixedLiabilities          = "9"
	SubjectTotalLiabilities               = "10"
)

// Master is the keyword and subject master.
type Master struct {
	Keywords []model.ScrapingKeyword `yaml:"keywords"`
	Subjects []model.Subject         `yaml:"subjects"`
}

// Load reads a master file, or the built-in master when path is empty.
func Load(path string) (*Master, error) {
	if path == "" {
		return Parse(defaultMaster)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "master: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a master document.
func Parse(data []byte) (*Master, error) {
	var wrapper struct {
		Master Master `yaml:"master"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "master: parse")
	}
	m := &wrapper.Master

	for _, k := range m.Keywords {
		if !k.Stage.IsScrape() {
			return nil, eris.Errorf("master: keyword %q has non-scrape stage %q", k.Keyword, k.Stage)
		}
		if k.Keyword == "" {
			return nil, eris.Errorf("master: empty keyword for stage %s", k.Stage)
		}
	}
	for _, s := range m.Subjects {
		if !s.Stage.IsScrape() || s.ID == "" || s.Name == "" {
			return nil, eris.Errorf("master: invalid subject %+v", s)
		}
	}
	return m, nil
}

// KeywordsFor returns the keywords of a stage ordered by priority. Keywords
// without a priority come last in file order.
func (m *Master) KeywordsFor(stage model.Stage) []model.ScrapingKeyword {
	var out []model.ScrapingKeyword
	for _, k := range m.Keywords {
		if k.Stage == stage {
			out = append(out, k)
		}
	}
	slices.SortStableFunc(out, func(a, b model.ScrapingKeyword) int {
		return a.Weight() - b.Weight()
	})
	return out
}

// FindSubject matches a table caption to a subject of the stage.
func (m *Master) FindSubject(stage model.Stage, caption string) (model.Subject, bool) {
	for _, s := range m.Subjects {
		if s.Stage == stage && s.Name == caption {
			return s, true
		}
	}
	return model.Subject{}, false
}
