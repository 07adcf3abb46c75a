package validator

import "testing"

type watchInput struct {
	Phone string `validate:"required,phone_digits"`
	State string `validate:"oneof=confirmed declined pending"`
}

func TestPhoneDigitsTag(t *testing.T) {
	v := New()

	if err := v.Struct(watchInput{Phone: "(21) 98216-1008", State: "pending"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	if err := v.Struct(watchInput{Phone: "abc-12", State: "pending"}); err == nil {
		t.Fatal("expected phone_digits to reject short input")
	}
	if err := v.Struct(watchInput{Phone: "21982161008", State: "maybe"}); err == nil {
		t.Fatal("expected oneof to reject unknown state")
	}
}
