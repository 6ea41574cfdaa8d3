package proto

import "testing"

func TestEdge(t *testing.T) {
	tests := []struct {
		button  int
		pressed bool
		want    ButtonEdge
	}{
		{0, true, Button1Down},
		{0, false, Button1Up},
		{1, true, Button2Down},
		{1, false, Button2Up},
	}
	for _, tt := range tests {
		if got := Edge(tt.button, tt.pressed); got != tt.want {
			t.Fatalf("Edge(%d, %v) = %s, want %s", tt.button, tt.pressed, got, tt.want)
		}
	}
}

func TestDemoPayloadLayout(t *testing.T) {
	b := LEDCmdPayload(LEDBlue, 0x01020304)
	if len(b) != LEDCmdSize || b[0] != 3 || b[4] != 0x04 || b[7] != 0x01 {
		t.Fatalf("LEDCmdPayload() = % x", b)
	}
	if _, _, ok := DecodeLEDCmdPayload(b[:4]); ok {
		t.Fatal("DecodeLEDCmdPayload(short) ok = true")
	}

	n := NoticePayload(LEDRed, 300, 700)
	led, t1, t2, ok := DecodeNoticePayload(n)
	if !ok || led != LEDRed || t1 != 300 || t2 != 700 {
		t.Fatalf("DecodeNoticePayload() = %s, %d, %d, %v", led, t1, t2, ok)
	}
	if len(n) > maxElemBytes {
		t.Fatalf("notice is %d bytes, queue elements hold %d", len(n), maxElemBytes)
	}
}
