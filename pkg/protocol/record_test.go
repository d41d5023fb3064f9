package protocol

import (
	"testing"
)

func TestDecodeRecord(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantType EventType
		wantTag  string
		wantCID  int
		wantBID  int
		wantEID  float64
	}{
		{
			name:     "buffer_msg",
			frame:    `{"type":"buffer_msg","cid":5,"bid":12,"eid":1400000000123456,"from":"alice","msg":"hi"}`,
			wantType: EventBufferMsg,
			wantTag:  "buffer_msg",
			wantCID:  5,
			wantBID:  12,
			wantEID:  1400000000123456,
		},
		{
			name:     "makeserver",
			frame:    `{"type":"makeserver","cid":1,"hostname":"irc.example.net","port":6697,"ssl":1}`,
			wantType: EventMakeServer,
			wantTag:  "makeserver",
			wantCID:  1,
		},
		{
			name:     "unknown_tag",
			frame:    `{"type":"brand_new_thing","cid":1}`,
			wantType: EventUnrecognized,
			wantTag:  "brand_new_thing",
			wantCID:  1,
		},
		{
			name:     "message_subtype_collapses",
			frame:    `{"type":"buffer_me_msg","cid":2,"bid":3,"eid":10}`,
			wantType: EventBufferMsg,
			wantTag:  "buffer_me_msg",
			wantCID:  2,
			wantBID:  3,
			wantEID:  10,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := DecodeRecord([]byte(tc.frame))
			if err != nil {
				t.Fatalf("DecodeRecord() error = %v", err)
			}
			if r.Type != tc.wantType {
				t.Errorf("Type = %v, want %v", r.Type, tc.wantType)
			}
			if r.Tag != tc.wantTag {
				t.Errorf("Tag = %q, want %q", r.Tag, tc.wantTag)
			}
			if r.CID != tc.wantCID {
				t.Errorf("CID = %d, want %d", r.CID, tc.wantCID)
			}
			if r.BID != tc.wantBID {
				t.Errorf("BID = %d, want %d", r.BID, tc.wantBID)
			}
			if r.EID != tc.wantEID {
				t.Errorf("EID = %v, want %v", r.EID, tc.wantEID)
			}
		})
	}
}

func TestDecodeRecordErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "empty", frame: ""},
		{name: "not_json", frame: "hello"},
		{name: "array", frame: "[1,2,3]"},
		{name: "missing_type", frame: `{"cid":1}`},
		{name: "non_string_type", frame: `{"type":42}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeRecord([]byte(tc.frame)); err == nil {
				t.Fatal("DecodeRecord() expected error, got nil")
			}
		})
	}
}

func TestRecordAccessors(t *testing.T) {
	r, err := DecodeRecord([]byte(`{"type":"status_changed","cid":4,"new_status":"connected","fail_info":{"timeout":30},"ssl":true}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}

	if got := r.Str("new_status"); got != "connected" {
		t.Errorf("Str(new_status) = %q, want %q", got, "connected")
	}
	if got := r.Str("missing"); got != "" {
		t.Errorf("Str(missing) = %q, want empty", got)
	}
	if !r.Bool("ssl") {
		t.Error("Bool(ssl) = false, want true")
	}
	if !r.Has("fail_info") {
		t.Error("Has(fail_info) = false, want true")
	}

	var failInfo struct {
		Timeout int `json:"timeout"`
	}
	if err := r.Unmarshal("fail_info", &failInfo); err != nil {
		t.Fatalf("Unmarshal(fail_info) error = %v", err)
	}
	if failInfo.Timeout != 30 {
		t.Errorf("fail_info.timeout = %d, want 30", failInfo.Timeout)
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		wantErr bool
	}{
		{
			name:  "complete_join",
			frame: `{"type":"joined_channel","cid":1,"bid":2,"nick":"alice","hostmask":"a@host"}`,
		},
		{
			name:    "join_missing_nick",
			frame:   `{"type":"joined_channel","cid":1,"bid":2}`,
			wantErr: true,
		},
		{
			name:    "makebuffer_missing_type",
			frame:   `{"type":"makebuffer","cid":1,"bid":2}`,
			wantErr: true,
		},
		{
			name:  "unrecognized_has_no_requirements",
			frame: `{"type":"experimental"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := DecodeRecord([]byte(tc.frame))
			if err != nil {
				t.Fatalf("DecodeRecord() error = %v", err)
			}
			err = r.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestCommandEncode(t *testing.T) {
	cmd := NewCommand(MethodJoin, map[string]any{
		"channel": "#test",
		"key":     "",
		"cid":     5,
	})
	cmd.ReqID = 42

	data, err := cmd.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := DecodeCommand(data)
	if err != nil {
		t.Fatalf("DecodeCommand() error = %v", err)
	}
	if decoded.Method != MethodJoin {
		t.Errorf("Method = %q, want %q", decoded.Method, MethodJoin)
	}
	if decoded.ReqID != 42 {
		t.Errorf("ReqID = %d, want 42", decoded.ReqID)
	}
	if decoded.Args["channel"] != "#test" {
		t.Errorf("channel = %v, want #test", decoded.Args["channel"])
	}
}

func TestCommandEncodeNoMethod(t *testing.T) {
	cmd := &Command{}
	if _, err := cmd.Encode(); err != ErrNoMethod {
		t.Errorf("Encode() error = %v, want ErrNoMethod", err)
	}
}

func TestCommandEncodeTooLarge(t *testing.T) {
	big := make([]byte, MaxCommandSize+1)
	for i := range big {
		big[i] = 'a'
	}
	cmd := NewCommand(MethodSay, map[string]any{
		"cid": 1,
		"to":  "#test",
		"msg": string(big),
	})
	if _, err := cmd.Encode(); err != ErrCommandTooLarge {
		t.Errorf("Encode() error = %v, want ErrCommandTooLarge", err)
	}
}

func TestResponseFromRecord(t *testing.T) {
	success, err := DecodeRecord([]byte(`{"type":"success","_reqid":7}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	resp, ok := ResponseFromRecord(success)
	if !ok {
		t.Fatal("ResponseFromRecord() ok = false for success record")
	}
	if !resp.Success || resp.ReqID != 7 {
		t.Errorf("resp = %+v, want success with reqid 7", resp)
	}

	failure, err := DecodeRecord([]byte(`{"type":"failure","_reqid":8,"message":"invalid_nick"}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	resp, ok = ResponseFromRecord(failure)
	if !ok {
		t.Fatal("ResponseFromRecord() ok = false for failure record")
	}
	if resp.Success || resp.Message != "invalid_nick" {
		t.Errorf("resp = %+v, want failure with message invalid_nick", resp)
	}

	other, err := DecodeRecord([]byte(`{"type":"idle"}`))
	if err != nil {
		t.Fatalf("DecodeRecord() error = %v", err)
	}
	if _, ok := ResponseFromRecord(other); ok {
		t.Error("ResponseFromRecord() ok = true for idle record")
	}
}
