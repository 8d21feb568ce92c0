package kafka

import (
	"reflect"
	"testing"
)

func TestBrokerList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"localhost:9092", []string{"localhost:9092"}},
		{" a:9092, b:9092 ,,", []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		if got := brokerList(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("brokerList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
