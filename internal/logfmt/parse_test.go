package logfmt

import (
	"reflect"
	"testing"
)

func TestParse_FormatCoverage(t *testing.T) {
	tests := []struct {
		name       string
		line       string
		wantTime   string
		wantLevel  Level
		wantModule string
		wantShort  string
		wantMsg    string
		wantFormat Format
	}{
		{
			name:       "bracketed",
			line:       "[2025-10-21T08:48:40Z INFO viaduct::bridge] synced to height 100",
			wantTime:   "2025-10-21T08:48:40Z",
			wantLevel:  LevelInfo,
			wantModule: "viaduct::bridge",
			wantShort:  "bridge",
			wantMsg:    "synced to height 100",
			wantFormat: FormatBracketed,
		},
		{
			name:       "bracketed bare time",
			line:       "[10:00:00 WARN builder::payload] queue len now 4",
			wantTime:   "10:00:00",
			wantLevel:  LevelWarn,
			wantModule: "builder::payload",
			wantShort:  "payload",
			wantMsg:    "queue len now 4",
			wantFormat: FormatBracketed,
		},
		{
			name:       "iso leading",
			line:       "2025-10-21T10:37:06.342076Z ERROR reth_node_events::node: Canonical chain committed",
			wantTime:   "2025-10-21T10:37:06.342076Z",
			wantLevel:  LevelError,
			wantModule: "reth_node_events::node",
			wantShort:  "node",
			wantMsg:    "Canonical chain committed",
			wantFormat: FormatISO,
		},
		{
			name:       "file location",
			line:       "builder::payload: src/payload.rs:142: building on parent 0xabc",
			wantLevel:  LevelUnknown,
			wantModule: "builder::payload",
			wantShort:  "payload",
			wantMsg:    "building on parent 0xabc",
			wantFormat: FormatFileLocation,
		},
	}

	p := NewParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse("svc", tt.line)
			if got.Timestamp != tt.wantTime {
				t.Errorf("Timestamp = %q, want %q", got.Timestamp, tt.wantTime)
			}
			if got.Level != tt.wantLevel {
				t.Errorf("Level = %v, want %v", got.Level, tt.wantLevel)
			}
			if got.Module != tt.wantModule {
				t.Errorf("Module = %q, want %q", got.Module, tt.wantModule)
			}
			if got.ModuleShort != tt.wantShort {
				t.Errorf("ModuleShort = %q, want %q", got.ModuleShort, tt.wantShort)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
			if got.Format != tt.wantFormat {
				t.Errorf("Format = %v, want %v", got.Format, tt.wantFormat)
			}
			if got.Source != "svc" {
				t.Errorf("Source = %q, want svc", got.Source)
			}
		})
	}
}

func TestParse_CaseInsensitiveLevels(t *testing.T) {
	p := NewParser()
	got := p.Parse("svc", "[10:00:00 warn viaduct::bridge] lagging")
	if got.Level != LevelWarn {
		t.Fatalf("Level = %v, want WARN", got.Level)
	}
}

func TestParse_Fallback(t *testing.T) {
	p := NewParser()
	line := "some completely free-form output without structure"
	got := p.Parse("svc", line)
	if got.Level != LevelUnknown {
		t.Errorf("Level = %v, want UNKNOWN", got.Level)
	}
	if got.Message != line {
		t.Errorf("Message = %q, want full line", got.Message)
	}
	if got.Module != "" || got.ModuleShort != "" {
		t.Errorf("Module = %q/%q, want empty", got.Module, got.ModuleShort)
	}
	if got.Format != FormatUnknown {
		t.Errorf("Format = %v, want unknown", got.Format)
	}
}

func TestParse_FallbackLiftsLevelToken(t *testing.T) {
	p := NewParser()
	got := p.Parse("svc", "panic recovered: ERROR while flushing state")
	if got.Level != LevelError {
		t.Fatalf("Level = %v, want ERROR", got.Level)
	}
	if got.Message != "panic recovered: ERROR while flushing state" {
		t.Fatalf("Message = %q, want full line", got.Message)
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := NewParser()
	line := "[2025-10-21T08:48:40Z INFO viaduct::bridge] synced to height 100"
	first := p.Parse("svc", line)
	second := p.Parse("svc", line)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parsing twice differs:\n%#v\n%#v", first, second)
	}
}

func TestParse_CountsInvocations(t *testing.T) {
	p := NewParser()
	if p.Calls() != 0 {
		t.Fatalf("Calls = %d, want 0", p.Calls())
	}
	p.Parse("svc", "a")
	p.Parse("svc", "b")
	if p.Calls() != 2 {
		t.Fatalf("Calls = %d, want 2", p.Calls())
	}
}

func TestParse_BracketedFileAnnotation(t *testing.T) {
	p := NewParser()
	got := p.Parse("svc", "[2025-10-21T08:48:40Z DEBUG builder::payload: src/payload.rs:9] built block")
	if got.Module != "builder::payload" {
		t.Fatalf("Module = %q, want builder::payload", got.Module)
	}
	if got.ModuleShort != "payload" {
		t.Fatalf("ModuleShort = %q, want payload", got.ModuleShort)
	}
}

func TestCompactTime(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-10-21T10:28:44.123Z", "10:28:44"},
		{"2025-10-21T10:28:44Z", "10:28:44"},
		{"2025-10-21 10:55:19.338+00:00", "10:55:19"},
		{"10:28:44", "10:28:44"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CompactTime(tt.in); got != tt.want {
			t.Errorf("CompactTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
