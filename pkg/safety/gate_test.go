package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateDenyList(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name   string
		source string
	}{
		{"recursive delete", `System.IO.Directory.Delete(path, true);`},
		{"recursive delete go", `os.RemoveAll("/tmp/project")`},
		{"process start", `System.Diagnostics.Process.Start("cmd.exe");`},
		{"process start go", `exec.Command("rm", "-rf", "/")`},
		{"environment mutation", `Environment.SetEnvironmentVariable("PATH", "")`},
		{"preference wipe", `PlayerPrefs.DeleteAll();`},
		{"application quit", `Application.Quit();`},
		{"host exit", `os.Exit(1)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := gate.Validate(tt.source)
			assert.False(t, safe, "source should be rejected")
			assert.NotEmpty(t, reason, "rejection needs a human-readable reason")
		})
	}
}

func TestValidateCategoryPatterns(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name   string
		source string
	}{
		{"path manipulation", `var p = System.IO.Path.Combine(a, b);`},
		{"file api", `System.IO.File.WriteAllText(p, data);`},
		{"socket construction", `var c = new System.Net.Sockets.TcpClient();`},
		{"socket construction go", `conn, _ := net.Dial("tcp", addr)`},
		{"reflection", `Assembly.Load(bytes);`},
		{"reflection go", `v := reflect.ValueOf(target)`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := gate.Validate(tt.source)
			assert.False(t, safe, "source should be rejected")
			assert.NotEmpty(t, reason)
		})
	}
}

func TestValidateSafeSource(t *testing.T) {
	gate := NewGate()

	tests := []struct {
		name   string
		source string
	}{
		{"debug log", `Debug.Log("hi")`},
		{"object creation", `var go = new GameObject("Player");`},
		{"transform math", `obj.transform.position = new Vector3(0, 1, 0);`},
		{"plain arithmetic", `x := 40 + 2`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := gate.Validate(tt.source)
			assert.True(t, safe, "source should pass: %s", reason)
			assert.Empty(t, reason)
		})
	}
}

func TestValidateDeterministic(t *testing.T) {
	gate := NewGate()
	source := `System.IO.Directory.Delete(path, true);`

	_, first := gate.Validate(source)
	for i := 0; i < 10; i++ {
		safe, reason := gate.Validate(source)
		require.False(t, safe)
		require.Equal(t, first, reason, "verdict must be deterministic")
	}
}

func TestAddPattern(t *testing.T) {
	gate := NewGate()

	require.NoError(t, gate.AddPattern(`AssetDatabase\.DeleteAsset`, "deletes a project asset"))
	safe, reason := gate.Validate(`AssetDatabase.DeleteAsset("Assets/Main.unity")`)
	assert.False(t, safe)
	assert.Contains(t, reason, "deletes a project asset")

	require.Error(t, gate.AddPattern(`[unclosed`, "broken"))
}

func TestCheckReturnsStructuredWarning(t *testing.T) {
	gate := NewGate()

	w := gate.Check(`PlayerPrefs.DeleteAll();`)
	require.NotNil(t, w)
	assert.Equal(t, "PlayerPrefs.DeleteAll", w.Pattern)
	assert.NotEmpty(t, w.Reason)
	assert.Contains(t, w.Error(), w.Reason)

	assert.Nil(t, gate.Check(`Debug.Log("hi")`))
}
