package config

// Presets are named configurations per scene, selectable from the CLI.
var Presets = map[string]map[string]*Config{
	"bounce": {
		"calm": {
			Scene: "bounce", Dt: 0.05, Duration: 12.0, FPS: 60,
			Params: SceneConfig{Bodies: 4, Gravity: 9.81, Restitution: 0.5, CullSpeed: 0.2},
		},
		"lively": {
			Scene: "bounce", Dt: 0.02, Duration: 20.0, FPS: 60,
			Params: SceneConfig{Bodies: 16, Gravity: 9.81, Restitution: 0.85, CullSpeed: 0.15},
		},
		"moon": {
			Scene: "bounce", Dt: 0.05, Duration: 30.0, FPS: 60,
			Params: SceneConfig{Bodies: 8, Gravity: 1.62, Restitution: 0.8, CullSpeed: 0.1},
		},
	},
	"orbit": {
		"rings": {
			Scene: "orbit", Dt: 0.01, Duration: 30.0, FPS: 60,
			Params: SceneConfig{Bodies: 12, Mu: 20},
		},
		"tight": {
			Scene: "orbit", Dt: 0.005, Duration: 15.0, FPS: 60,
			Params: SceneConfig{Bodies: 6, Mu: 60},
		},
	},
	"spin": {
		"tumble": {
			Scene: "spin", Dt: 0.05, Duration: 20.0, FPS: 60,
			Params: SceneConfig{Bodies: 5},
		},
	},
	"fountain": {
		"burst": {
			Scene: "fountain", Dt: 0.02, Duration: 15.0, FPS: 60,
			Params: SceneConfig{Gravity: 9.81, SpawnEvery: 1, MaxBodies: 128},
		},
		"drip": {
			Scene: "fountain", Dt: 0.05, Duration: 30.0, FPS: 30,
			Params: SceneConfig{Gravity: 9.81, SpawnEvery: 10, MaxBodies: 24},
		},
	},
}

// GetPreset returns the named preset for a scene, or nil when either the
// scene or the preset does not exist. Zero-valued fields fall back to
// defaults when applied.
func GetPreset(sceneName, presetName string) *Config {
	scenePresets, ok := Presets[sceneName]
	if !ok {
		return nil
	}
	return scenePresets[presetName]
}

// ListPresets returns the preset names available for a scene.
func ListPresets(sceneName string) []string {
	scenePresets, ok := Presets[sceneName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	return names
}
