package websocket

import "testing"

func TestOpcodeFromByte(t *testing.T) {
	tests := []struct {
		name   string
		b      byte
		want   Opcode
		wantOK bool
	}{
		{
			name: "continuation",
			b:    0,
		},
		{
			name:   "text",
			b:      1,
			want:   OpcodeText,
			wantOK: true,
		},
		{
			name:   "binary",
			b:      2,
			want:   OpcodeBinary,
			wantOK: true,
		},
		{
			name: "reserved_data",
			b:    3,
		},
		{
			name: "reserved_data_upper",
			b:    7,
		},
		{
			name:   "close",
			b:      8,
			want:   OpcodeClose,
			wantOK: true,
		},
		{
			name:   "ping",
			b:      9,
			want:   OpcodePing,
			wantOK: true,
		},
		{
			name:   "pong",
			b:      10,
			want:   OpcodePong,
			wantOK: true,
		},
		{
			name: "reserved_control",
			b:    11,
		},
		{
			name: "reserved_control_upper",
			b:    15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := opcodeFromByte(tt.b)
			if ok != tt.wantOK {
				t.Errorf("opcodeFromByte(%d) ok = %v, want %v", tt.b, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("opcodeFromByte(%d) = %v, want %v", tt.b, got, tt.want)
			}
		})
	}
}

func TestOpcodePredicates(t *testing.T) {
	tests := []struct {
		name        string
		o           Opcode
		wantText    bool
		wantControl bool
	}{
		{
			name:     "text",
			o:        OpcodeText,
			wantText: true,
		},
		{
			name: "binary",
			o:    OpcodeBinary,
		},
		{
			name:        "close",
			o:           OpcodeClose,
			wantControl: true,
		},
		{
			name:        "ping",
			o:           OpcodePing,
			wantControl: true,
		},
		{
			name:        "pong",
			o:           OpcodePong,
			wantControl: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.o.IsText(); got != tt.wantText {
				t.Errorf("Opcode.IsText() = %v, want %v", got, tt.wantText)
			}
			if got := tt.o.IsControl(); got != tt.wantControl {
				t.Errorf("Opcode.IsControl() = %v, want %v", got, tt.wantControl)
			}
		})
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		name string
		o    Opcode
		want string
	}{
		{
			name: "text",
			o:    OpcodeText,
			want: "text",
		},
		{
			name: "pong",
			o:    OpcodePong,
			want: "pong",
		},
		{
			name: "unrecognized",
			o:    Opcode(7),
			want: "7",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.o.String(); got != tt.want {
				t.Errorf("Opcode.String() = %q, want %q", got, tt.want)
			}
		})
	}
}
