package shared

import (
	"errors"
	"os/exec"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	origRuntime, origStart := getRuntime, startCommand
	t.Cleanup(func() {
		getRuntime, startCommand = origRuntime, origStart
	})

	tests := []struct {
		goos     string
		wantBin  string
		startErr error
		wantErr  bool
	}{
		{goos: "darwin", wantBin: "open"},
		{goos: "linux", wantBin: "xdg-open"},
		{goos: "windows", wantBin: "rundll32"},
		{goos: "plan9", wantErr: true},
		{goos: "linux", wantBin: "xdg-open", startErr: errors.New("no display"), wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.goos, func(t *testing.T) {
			var started *exec.Cmd
			getRuntime = func() string { return tc.goos }
			startCommand = func(cmd *exec.Cmd) error {
				started = cmd
				return tc.startErr
			}

			err := OpenBrowser("http://mascot.local/cgi/master_results.pl?file=../data/20100601/F021799.dat")
			if (err != nil) != tc.wantErr {
				t.Fatalf("OpenBrowser() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantBin == "" {
				return
			}
			if started == nil || started.Args[0] != tc.wantBin {
				t.Errorf("expected %s to be started, got %v", tc.wantBin, started)
			}
		})
	}
}
