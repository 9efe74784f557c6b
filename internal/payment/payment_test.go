package payment

import (
	"errors"
	"testing"
)

func valid() Details {
	return Details{
		CardType:   CardVisa,
		CardNumber: "4111111111111111",
		Expiry:     "09/27",
		CVV:        "123",
	}
}

func TestValidateAccepts(t *testing.T) {
	cases := map[string]Details{
		"visa 16 digits": valid(),
		"mastercard": {
			CardType: CardMastercard, CardNumber: "5555555555554444", Expiry: "01/30", CVV: "999",
		},
		"amex with 4 digit cvv": {
			CardType: CardAmEx, CardNumber: "34000000000000009", Expiry: "12/25", CVV: "1234",
		},
		"17 digit number": {
			CardType: CardVisa, CardNumber: "41111111111111111", Expiry: "10/26", CVV: "1",
		},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			if err := Validate(d); err != nil {
				t.Errorf("Validate(%+v) = %v, want nil", d, err)
			}
		})
	}
}

func TestValidateRejects(t *testing.T) {
	mutate := func(f func(*Details)) Details {
		d := valid()
		f(&d)
		return d
	}

	cases := map[string]Details{
		"no card type":      mutate(func(d *Details) { d.CardType = "" }),
		"unknown card type": mutate(func(d *Details) { d.CardType = "Diners Club" }),
		"empty number":      mutate(func(d *Details) { d.CardNumber = "" }),
		"empty expiry":      mutate(func(d *Details) { d.Expiry = "" }),
		"empty cvv":         mutate(func(d *Details) { d.CVV = "" }),
		"number too short":  mutate(func(d *Details) { d.CardNumber = "411111111111111" }),
		"number too long":   mutate(func(d *Details) { d.CardNumber = "411111111111111111" }),
		"cvv too long":      mutate(func(d *Details) { d.CVV = "12345" }),
		"letters in number": mutate(func(d *Details) { d.CardNumber = "41111111111111ab" }),
		"letters in cvv":    mutate(func(d *Details) { d.CVV = "12a" }),
		"expiry month 00":   mutate(func(d *Details) { d.Expiry = "00/27" }),
		"expiry month 13":   mutate(func(d *Details) { d.Expiry = "13/27" }),
		"expiry no slash":   mutate(func(d *Details) { d.Expiry = "0927" }),
		"expiry long year":  mutate(func(d *Details) { d.Expiry = "09/2027" }),
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			err := Validate(d)
			if err == nil {
				t.Fatalf("Validate(%+v) = nil, want ValidationError", d)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error %v is not a *ValidationError", err)
			}
		})
	}
}

// The length check fires before the digits check; a 15-char alphanumeric
// string is rejected for length, a 16-char one for its letters.
func TestValidateCheckOrder(t *testing.T) {
	d := valid()
	d.CardNumber = "41111111111111a" // 15 chars
	err := Validate(d)
	if err == nil || err.Error() != "payment validation failed: card number must be 16 or 17 digits" {
		t.Errorf("short alphanumeric number: got %v, want the length rejection", err)
	}

	d.CardNumber = "41111111111111ab" // 16 chars
	err = Validate(d)
	if err == nil || err.Error() != "payment validation failed: card number and cvv must contain only digits" {
		t.Errorf("16-char alphanumeric number: got %v, want the digits rejection", err)
	}
}

func TestMaskNumber(t *testing.T) {
	cases := map[string]string{
		"4111111111111111":  "************1111",
		"41111111111111117": "*************1117",
		"1234":              "1234",
		"":                  "",
	}
	for in, want := range cases {
		if got := MaskNumber(in); got != want {
			t.Errorf("MaskNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(valid())
	if s.CardType != CardVisa {
		t.Errorf("CardType = %q", s.CardType)
	}
	if s.MaskedNumber != "************1111" {
		t.Errorf("MaskedNumber = %q", s.MaskedNumber)
	}
}
