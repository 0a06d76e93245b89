package setup

import (
	"strings"

	"github.com/natelust/reups/internal/reupserr"
)

// interpolate expands ${PRODUCT_DIR}, ${VAR}, and the required form ${!VAR}
// in raw, against the current product's install directory and the shadow
// environment (spec §4.6). A missing plain ${VAR} expands to empty; a
// missing ${!VAR} fails the containing action.
func interpolate(raw, productDir string, shadow map[string]string) (string, error) {
	var sb strings.Builder
	i := 0
	for i < len(raw) {
		start := strings.Index(raw[i:], "${")
		if start == -1 {
			sb.WriteString(raw[i:])
			break
		}
		start += i
		sb.WriteString(raw[i:start])

		end := strings.IndexByte(raw[start+2:], '}')
		if end == -1 {
			// Unbalanced: no closing brace, pass the rest through verbatim.
			sb.WriteString(raw[start:])
			break
		}
		end += start + 2

		token := raw[start+2 : end]
		required := strings.HasPrefix(token, "!")
		name := strings.TrimPrefix(token, "!")

		var val string
		switch name {
		case "PRODUCT_DIR":
			val = productDir
		default:
			v, ok := shadow[name]
			if !ok && required {
				return "", reupserr.Newf(reupserr.InterpolationError, "required variable %s is unset", name)
			}
			val = v
		}
		sb.WriteString(val)
		i = end + 1
	}
	return sb.String(), nil
}
