package calculator

import "testing"

func TestSettingsPatchApply(t *testing.T) {
	base := DefaultSettings()
	theme := ThemeDark
	sound := false
	precision := 0

	tests := []struct {
		name  string
		patch SettingsPatch
		want  Settings
	}{
		{"empty", SettingsPatch{}, base},
		{"theme", SettingsPatch{Theme: &theme}, Settings{Theme: ThemeDark, SoundEnabled: true, Precision: 2}},
		{"sound", SettingsPatch{SoundEnabled: &sound}, Settings{Theme: ThemeGradient, SoundEnabled: false, Precision: 2}},
		{"zero precision", SettingsPatch{Precision: &precision}, Settings{Theme: ThemeGradient, SoundEnabled: true, Precision: 0}},
		{"all", SettingsPatch{Theme: &theme, SoundEnabled: &sound, Precision: &precision}, Settings{Theme: ThemeDark, SoundEnabled: false, Precision: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.patch.Apply(base); got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}
