package password

import "github.com/nbutton23/zxcvbn-go"

// Strength returns the zxcvbn score of secret on the 0 (trivial) to 4
// (very strong) scale. hints are account-specific words such as the username
// and email that make a secret easier to guess.
func Strength(secret string, hints ...string) int {
	if secret == "" {
		return 0
	}
	inputs := make([]string, 0, len(hints))
	for _, h := range hints {
		if h != "" {
			inputs = append(inputs, h)
		}
	}
	return zxcvbn.PasswordStrength(secret, inputs).Score
}
