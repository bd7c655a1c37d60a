package serializer

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/google/go-cmp/cmp"
)

func TestDecodeCommand(t *testing.T) {
	s := NewJSONSerializer()
	query := "x"
	numericQuery := "1"
	objectQuery := `{"a":1}`

	tests := []struct {
		name    string
		in      string
		want    common.Command
		wantErr bool
	}{
		{"Set", `{"action":"set","key":"a","value":"1"}`, common.Command{Action: common.ActionSet, Key: "a", Value: []byte(`"1"`)}, false},
		{"SearchQuery", `{"action":"search","query":"x","pattern":"a*"}`, common.Command{Action: common.ActionSearch, Query: &query, Pattern: "a*"}, false},
		{"UnknownFieldsIgnored", `{"action":"get","key":"a","extra":1}`, common.Command{Action: common.ActionGet, Key: "a"}, false},
		{"LeadingWhitespace", " \n{\"action\":\"get\"}", common.Command{Action: common.ActionGet}, false},
		{"Truncated", `{"action":"get"`, common.Command{}, true},
		{"Null", `null`, common.Command{}, true},
		{"Array", `[{"action":"get"}]`, common.Command{}, true},
		{"String", `"get"`, common.Command{}, true},
		{"Empty", ``, common.Command{}, true},
		{"ObjectWithTrailingData", `{"action":"get"} x`, common.Command{}, true},

		// wrongly typed fields decode, the dispatcher rejects them
		{"ActionNotString", `{"action":5,"key":"a"}`, common.Command{Key: "a"}, false},
		{"KeyNotString", `{"action":"get","key":1}`, common.Command{Action: common.ActionGet}, false},
		{"KeyNotStringIgnoresVariable", `{"action":"get","key":[],"variable":"a"}`, common.Command{Action: common.ActionGet}, false},
		{"Variable", `{"action":"get","variable":"a"}`, common.Command{Action: common.ActionGet, Variable: "a"}, false},
		{"VariableNotString", `{"action":"get","variable":true}`, common.Command{Action: common.ActionGet}, false},
		{"QueryNull", `{"action":"search","query":null}`, common.Command{Action: common.ActionSearch}, false},
		{"QueryNotString", `{"action":"search","query":1}`, common.Command{Action: common.ActionSearch, Query: &numericQuery}, false},
		{"QueryObject", `{"action":"search","query":{ "a": 1 }}`, common.Command{Action: common.ActionSearch, Query: &objectQuery}, false},
		{"PatternNotString", `{"action":"search","pattern":7}`, common.Command{Action: common.ActionSearch}, false},
		{"NumericValue", `{"action":"increment","key":"a","value":5}`, common.Command{Action: common.ActionIncrement, Key: "a", Value: []byte(`5`)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd common.Command
			err := s.DecodeCommand([]byte(tt.in), &cmd)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected an error, got %+v", cmd)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, cmd); diff != "" {
				t.Errorf("Command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeCommandNotAnObject(t *testing.T) {
	var cmd common.Command
	if err := NewJSONSerializer().DecodeCommand([]byte("42"), &cmd); !errors.Is(err, ErrNotAnObject) {
		t.Errorf("Expected ErrNotAnObject, got %v", err)
	}
}

func TestEncodeReply(t *testing.T) {
	s := NewJSONSerializer()

	tests := []struct {
		name  string
		reply *common.Reply
		want  string
	}{
		{"Value", common.NewValueReply("score", "10"), `{"key":"score","value":"10"}`},
		{"Integer", common.NewValueReply("score", int64(15)), `{"key":"score","value":15}`},
		{"Null", common.NewValueReply("score", nil), `{"key":"score","value":null}`},
		{"Error", common.NewErrorReply(common.ErrMsgKeyNotFound), `{"error":"Key not found"}`},
		{"EmptySearch", common.NewSearchReply(nil), `{"results":[]}`},
		{"Search", common.NewSearchReply([]store.KeyValue{{Key: "a", Value: "1"}}), `{"results":[{"key":"a","value":"1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := s.EncodeReply(*tt.reply)
			if err != nil {
				t.Fatalf("EncodeReply failed: %v", err)
			}
			if string(b) != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, b)
			}

			var decoded common.Reply
			if err := s.DecodeReply(b, &decoded); err != nil {
				t.Fatalf("DecodeReply failed: %v", err)
			}
			if diff := cmp.Diff(*tt.reply, decoded); diff != "" {
				t.Errorf("Reply mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
