package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sideffect263/netviz-backend/internal/models"
)

func TestRecognizer_ExtractsDomainsAndIPs(t *testing.T) {
	rec := NewRecognizer()

	entities := rec.Extract("scan www.example.com and 192.168.1.1, then check sub.test.co.uk")

	values := make(map[string]models.TargetType, len(entities))
	for _, e := range entities {
		values[e.Value] = e.Type
	}

	assert.Equal(t, models.TargetDomain, values["www.example.com"])
	assert.Equal(t, models.TargetIP, values["192.168.1.1"])
	assert.Equal(t, models.TargetDomain, values["sub.test.co.uk"])
}

func TestRecognizer_RejectsInvalidOctets(t *testing.T) {
	rec := NewRecognizer()

	entities := rec.Extract("the value 999.999.999.999 is not an address")
	for _, e := range entities {
		assert.NotEqual(t, "999.999.999.999", e.Value)
	}
}

func TestRecognizer_DeduplicatesWithinMessage(t *testing.T) {
	rec := NewRecognizer()

	entities := rec.Extract("10.0.0.1 10.0.0.1 10.0.0.1")
	assert.Len(t, entities, 1)
}

func TestRecognizer_IgnoresPlainWords(t *testing.T) {
	rec := NewRecognizer()

	entities := rec.Extract("please run a full scan now")
	assert.Empty(t, entities)
}
