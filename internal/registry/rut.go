package registry

import (
	"fmt"
	"strings"
)

// NormalizeRUT はチリのRUTを "12345678-5" 形式に正規化し、検証数字を確認する。
// ドット・空白は除去し、検証数字のkは大文字にする。ハイフンは省略可。
func NormalizeRUT(raw string) (string, error) {
	s := strings.ToUpper(strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(raw)))
	if s == "" {
		return "", fmt.Errorf("empty RUT")
	}

	var body, dv string
	if i := strings.LastIndexByte(s, '-'); i >= 0 {
		body, dv = s[:i], s[i+1:]
	} else {
		body, dv = s[:len(s)-1], s[len(s)-1:]
	}

	if len(body) == 0 || len(body) > 8 || len(dv) != 1 {
		return "", fmt.Errorf("malformed RUT: %q", raw)
	}
	for _, c := range body {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("malformed RUT: %q", raw)
		}
	}

	body = strings.TrimLeft(body, "0")
	if body == "" {
		return "", fmt.Errorf("malformed RUT: %q", raw)
	}
	if want := rutCheckDigit(body); dv[0] != want {
		return "", fmt.Errorf("invalid RUT check digit: %q", raw)
	}
	return body + "-" + dv, nil
}

// rutCheckDigit は本体の数字列からモジュロ11の検証数字を求める。
func rutCheckDigit(body string) byte {
	sum, factor := 0, 2
	for i := len(body) - 1; i >= 0; i-- {
		sum += int(body[i]-'0') * factor
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return '0'
	case 10:
		return 'K'
	default:
		return byte('0' + r)
	}
}
