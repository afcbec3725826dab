package config

import "testing"

func TestValidateDetailed_Valid(t *testing.T) {
	cfg := DefaultConfig()
	result := cfg.ValidateDetailed()
	if !result.IsValid() {
		t.Errorf("expected valid config, got errors: %v", result.Errors)
	}
}

func TestValidateDetailed_InvalidModuleFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ModuleFormat = "amd"
	result := cfg.ValidateDetailed()
	if result.IsValid() {
		t.Error("expected invalid config for an unsupported moduleFormat")
	}
}

func TestValidateDetailed_EmptyBlacklistEntryWarns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TypeBlacklist = []string{""}
	result := cfg.ValidateDetailed()
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about the empty blacklist entry")
	}
}

func TestValidateDetailed_UntypedWithBlacklistWarns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Untyped = true
	cfg.TypeBlacklist = []string{"some/path"}
	result := cfg.ValidateDetailed()
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about a redundant blacklist under untyped mode")
	}
}

func TestValidateDetailed_QuietAndStrictWarns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Quiet = true
	cfg.Strict = true
	result := cfg.ValidateDetailed()
	if len(result.Warnings) == 0 {
		t.Error("expected a warning about quiet+strict interacting badly")
	}
}
