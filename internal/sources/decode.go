package sources

import (
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// decodeEach decodes every element of a response array on its own, so one
// element with an unexpected shape is skipped instead of failing the batch
func decodeEach[T any](source string, raw []json.RawMessage) []T {
	decoded := make([]T, 0, len(raw))
	for i, element := range raw {
		var v T
		if err := json.Unmarshal(element, &v); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"source": source,
				"index":  i,
			}).Debug("Skipping undecodable item")
			continue
		}
		decoded = append(decoded, v)
	}
	return decoded
}
