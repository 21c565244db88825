package tui

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line   string
		want   command
		wantOK bool
	}{
		{"hello there", command{}, false},
		{"/", command{}, false},
		{"  ", command{}, false},
		{"/reset", command{name: "reset"}, true},
		{"/PICK 2", command{name: "pick", args: "2"}, true},
		{"  /nearby schools  Ocean Pearl ", command{name: "nearby", args: "schools  Ocean Pearl"}, true},
	}
	for _, tt := range tests {
		got, ok := parseCommand(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("parseCommand(%q) = %+v, %v; want %+v, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCommandIndex(t *testing.T) {
	c := command{name: "pick", args: "3"}
	if i, err := c.index(3); err != nil || i != 2 {
		t.Errorf("index(3) = %d, %v; want 2", i, err)
	}
	for _, args := range []string{"0", "4", "x", ""} {
		c := command{name: "pick", args: args}
		if _, err := c.index(3); err == nil {
			t.Errorf("index with args %q should fail", args)
		}
	}
}

func TestCommandNearbyArgs(t *testing.T) {
	tests := []struct {
		args     string
		wantType string
		wantName string
		wantErr  bool
	}{
		{"school Ocean Pearl", "school", "Ocean Pearl", false},
		{"Hospitals Kadri Heights", "hospital", "Kadri Heights", false},
		{"malls NorthernSky City", "mall", "NorthernSky City", false},
		{"parks Ocean Pearl", "", "", true},
		{"school", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		typ, name, err := command{name: "nearby", args: tt.args}.nearbyArgs()
		if (err != nil) != tt.wantErr {
			t.Errorf("nearbyArgs(%q) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if typ != tt.wantType || name != tt.wantName {
			t.Errorf("nearbyArgs(%q) = %q, %q; want %q, %q", tt.args, typ, name, tt.wantType, tt.wantName)
		}
	}
}
