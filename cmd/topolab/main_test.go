package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const labTopology = `
version: 1
components:
  - id: r1
    type: router
    position: {x: 400, y: 300}
    display_name: Edge
  - id: s1
    type: switch
    position: {x: 600, y: 300}
    display_name: Core
connections:
  - id: c1
    from_id: r1
    to_id: s1
    kind: wired
`

const brokenTopology = `
version: 1
components:
  - id: r1
    type: router
    position: {x: 400, y: 300}
  - id: t1
    type: toaster
    position: {x: 500, y: 300}
connections: []
`

const labScan = `<?xml version="1.0" encoding="UTF-8"?>
<nmaprun scanner="nmap" args="nmap -sV --traceroute 10.0.0.0/24" start="1700000000" version="7.94" xmloutputversion="1.05">
<host>
  <status state="up" reason="arp-response"/>
  <address addr="10.0.0.1" addrtype="ipv4"/>
  <hostnames><hostname name="gateway.lab.local" type="PTR"/></hostnames>
  <ports>
    <port protocol="tcp" portid="53"><state state="open" reason="syn-ack"/><service name="domain"/></port>
    <port protocol="tcp" portid="443"><state state="open" reason="syn-ack"/><service name="https"/></port>
  </ports>
</host>
<host>
  <status state="up" reason="arp-response"/>
  <address addr="10.0.0.50" addrtype="ipv4"/>
  <ports>
    <port protocol="tcp" portid="22"><state state="open" reason="syn-ack"/><service name="ssh"/></port>
  </ports>
  <trace port="22" proto="tcp">
    <hop ttl="1" ipaddr="10.0.0.1" rtt="0.40"/>
    <hop ttl="2" ipaddr="10.0.0.50" rtt="0.90"/>
  </trace>
</host>
</nmaprun>`

// resetFlags puts every flag back to its default so commands can run again
// in the same process
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the CLI with a throwaway config and returns stdout
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "topolab.yaml",
		"log:\n  level: error\ndatabase:\n  path: "+filepath.Join(dir, "topolab.db")+"\n")

	resetFlags(rootCmd)
	t.Cleanup(func() { resetFlags(rootCmd) })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRulesCommands(t *testing.T) {
	t.Run("check allowed", func(t *testing.T) {
		out, err := execute(t, "rules", "check", "router", "switch")
		require.NoError(t, err)
		assert.Contains(t, out, "may connect")
	})

	t.Run("check denied", func(t *testing.T) {
		_, err := execute(t, "rules", "check", "router", "printer")
		assert.Error(t, err)
	})

	t.Run("partners", func(t *testing.T) {
		out, err := execute(t, "rules", "partners", "router")
		require.NoError(t, err)
		assert.Contains(t, out, "switch")
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := execute(t, "rules", "partners", "toaster")
		assert.Error(t, err)
	})

	t.Run("list", func(t *testing.T) {
		out, err := execute(t, "rules", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "ALLOWED")
		assert.Contains(t, out, "router")
	})

	t.Run("export", func(t *testing.T) {
		out, err := execute(t, "rules", "export")
		require.NoError(t, err)
		assert.Contains(t, out, "rules:")
	})
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "lab.yaml", labTopology)

	t.Run("clean file", func(t *testing.T) {
		out, err := execute(t, "validate", good)
		require.NoError(t, err)
		assert.Contains(t, out, "2 components, 1 connections, ok")
	})

	broken := writeFile(t, dir, "broken.yaml", brokenTopology)

	t.Run("skipped records pass without strict", func(t *testing.T) {
		out, err := execute(t, "validate", broken)
		require.NoError(t, err)
		assert.Contains(t, out, "1 skipped")
		assert.Contains(t, out, "t1")
	})

	t.Run("strict fails on skipped records", func(t *testing.T) {
		_, err := execute(t, "validate", "--strict", dir)
		assert.True(t, errors.Is(err, errInvalid))
	})

	t.Run("unreadable file fails", func(t *testing.T) {
		bad := writeFile(t, t.TempDir(), "bad.json", `{"version":`)
		_, err := execute(t, "validate", bad)
		assert.True(t, errors.Is(err, errInvalid))
	})

	t.Run("missing path fails", func(t *testing.T) {
		_, err := execute(t, "validate", filepath.Join(dir, "gone.yaml"))
		assert.Error(t, err)
	})
}

func TestSimulateCommand(t *testing.T) {
	t.Run("sample topology", func(t *testing.T) {
		out, err := execute(t, "simulate", "--duration", "10s")
		require.NoError(t, err)
		assert.Contains(t, out, "Generated")
		assert.Contains(t, out, "Delivered")
		assert.Contains(t, out, "Routes:")
	})

	t.Run("malformed problem", func(t *testing.T) {
		_, err := execute(t, "simulate", "--problem", "router")
		assert.Error(t, err)
	})

	t.Run("problem on unknown component", func(t *testing.T) {
		_, err := execute(t, "simulate", "--problem", "ghost=power_off")
		assert.Error(t, err)
	})

	t.Run("topology without clients", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "lab.yaml", labTopology)
		_, err := execute(t, "simulate", "--topology", path)
		assert.Error(t, err)
	})
}

func TestParseProblem(t *testing.T) {
	id, kind, err := parseProblem("r1=power_off")
	require.NoError(t, err)
	assert.Equal(t, "r1", id)
	assert.Equal(t, "power_off", string(kind))

	_, _, err = parseProblem("r1=melted")
	assert.Error(t, err)
	_, _, err = parseProblem("=power_off")
	assert.Error(t, err)
}

func TestImportScanCommand(t *testing.T) {
	dir := t.TempDir()
	report := writeFile(t, dir, "scan.xml", labScan)

	t.Run("json to stdout", func(t *testing.T) {
		out, err := execute(t, "import-scan", report, "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, out, `"host-10-0-0-1"`)
		assert.Contains(t, out, `"host-10-0-0-50"`)
		assert.Contains(t, out, `"wired"`)
	})

	t.Run("yaml to file", func(t *testing.T) {
		target := filepath.Join(dir, "scan.yaml")
		_, err := execute(t, "import-scan", report, "--output", target)
		require.NoError(t, err)

		data, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(data), "host-10-0-0-1")
	})

	t.Run("needs a source", func(t *testing.T) {
		_, err := execute(t, "import-scan")
		assert.Error(t, err)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, "import-scan", report, "--format", "csv")
		assert.Error(t, err)
	})
}
