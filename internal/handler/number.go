package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sakif/stockbook/internal/apperror"
)

// flexNumber accepts a JSON number or a string holding one, as browser
// forms often send "12" instead of 12. A JSON null leaves the pointer nil.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return apperror.ValidationFailed("", "numeric fields must be numbers")
		}
		*n = flexNumber(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return apperror.ValidationFailed("", "numeric fields must be numbers")
	}
	*n = flexNumber(f)
	return nil
}

// float returns the value as *float64, keeping nil for absent fields.
func (n *flexNumber) float() *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
