package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintDeterministic(t *testing.T) {
	inputs := map[string]interface{}{
		"where_clause": "valor_del_contrato > 1000000",
		"return_limit": 100,
		"sample_mode":  true,
	}

	assert.Equal(t, Fingerprint(inputs), Fingerprint(inputs))
	assert.Len(t, Fingerprint(inputs), 32)
}

func TestFingerprintIndependentOfInsertionOrder(t *testing.T) {
	a := map[string]interface{}{}
	a["where_clause"] = "departamento = 'Antioquia'"
	a["return_limit"] = 50
	a["sample_mode"] = true

	b := map[string]interface{}{}
	b["sample_mode"] = true
	b["return_limit"] = 50
	b["where_clause"] = "departamento = 'Antioquia'"

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintSensitiveToValues(t *testing.T) {
	base := map[string]interface{}{"return_limit": 100, "sample_mode": true}
	other := map[string]interface{}{"return_limit": 200, "sample_mode": true}

	assert.NotEqual(t, Fingerprint(base), Fingerprint(other))
}
