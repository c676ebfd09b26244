package cache

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
)

// Fingerprint returns the deterministic hash of a set of identifying inputs.
// The map is serialized with sorted keys (encoding/json canonicalizes map
// ordering), so equal logical inputs hash equally regardless of key order.
func Fingerprint(inputs map[string]interface{}) string {
	canonical, err := json.Marshal(inputs)
	if err != nil {
		// Only unserializable values land here; fall back to the formatted map
		canonical = []byte(fmt.Sprintf("%v", inputs))
	}
	return fmt.Sprintf("%x", md5.Sum(canonical))
}
