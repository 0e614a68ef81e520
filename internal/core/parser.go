package core

// Separator joins the segments of a compact serialization.
const Separator = '.'

// SigningInput returns encodedHeader || '.' || encodedPayload. Inputs are
// taken as already encoded and are not validated.
func SigningInput(encodedHeader, encodedPayload []byte) []byte {
	buf := make([]byte, 0, len(encodedHeader)+1+len(encodedPayload))
	buf = append(buf, encodedHeader...)
	buf = append(buf, Separator)
	return append(buf, encodedPayload...)
}

// Join appends the encoded signature to a signing input.
func Join(signingInput, encodedSignature []byte) []byte {
	buf := make([]byte, 0, len(signingInput)+1+len(encodedSignature))
	buf = append(buf, signingInput...)
	buf = append(buf, Separator)
	return append(buf, encodedSignature...)
}

// Split3 splits s into exactly three separator-delimited parts.
func Split3(s string) (string, string, string, bool) {
	sLen := len(s)
	first := -1
	second := -1

	for i := 0; i < sLen; i++ {
		if s[i] != Separator {
			continue
		}
		switch {
		case first == -1:
			first = i
		case second == -1:
			second = i
		default:
			return "", "", "", false
		}
	}

	if first == -1 || second == -1 {
		return "", "", "", false
	}

	return s[:first], s[first+1 : second], s[second+1:], true
}
