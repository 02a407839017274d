package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"umbra/entities"
)

func TestValidDOI(t *testing.T) {
	cases := map[string]bool{
		"10.1038/s41526-020-00124-6": true,
		"10.1371/journal.pone.0012345": true,
		" 10.1007/ABC.123 ":           true,
		"10.12/short":                 false,
		"11.1038/x":                   false,
		"doi:10.1038/x":               false,
		"":                            false,
	}
	for doi, want := range cases {
		assert.Equal(t, want, ValidDOI(doi), doi)
	}
}

func TestFormat(t *testing.T) {
	p := &entities.Publication{
		Title:           "Bone loss in mice",
		Authors:         []string{"Smith J", "Doe A"},
		PublicationDate: "2019-05-02",
		DOI:             "10.1000/xyz123",
	}
	assert.Equal(t, `Smith J et al. (2019). "Bone loss in mice". *NASA Technical Reports Server*. DOI: 10.1000/xyz123`, Format(p))

	p.Authors = []string{"Smith J"}
	p.PublicationDate = ""
	assert.Equal(t, `Smith J (n.d.). "Bone loss in mice". *NASA Technical Reports Server*. DOI: 10.1000/xyz123`, Format(p))
}

func TestYear(t *testing.T) {
	assert.Equal(t, "2021", Year("2021-03-04T00:00:00Z"))
	assert.Equal(t, "2014", Year("Published March 2014"))
	assert.Equal(t, "2010", Year("January 5, 2010"))
	assert.Equal(t, "n.d.", Year("unknown"))
}
