package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eth2030/blake2f/precompile"
)

const (
	vectorInput = "0000000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68059b6bbd41fbabd9831f79217e1319cde05b" +
		"6162630000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000" +
		"0300000000000000000000000000000001"
	vectorOutput = "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d17d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923"
)

func runCLI(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"blake2f-trace", "--log.level", "error"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), code
}

func TestCompress(t *testing.T) {
	out, errOut, code := runCLI(t, "compress", vectorInput)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, vectorOutput+"\n", out)
}

func TestCompressFromEnv(t *testing.T) {
	t.Setenv("BLAKE2F_INPUT", "0x"+vectorInput)
	out, errOut, code := runCLI(t, "compress", "--verify=false")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, vectorOutput+"\n", out)
}

func TestEnvDoesNotOutliveRun(t *testing.T) {
	t.Setenv("BLAKE2F_INPUT", vectorInput)
	t.Setenv("BLAKE2F_ROWS", "2048")
	_, errOut, code := runCLI(t, "compress", "--verify=false")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not enough rows")

	require.NoError(t, os.Unsetenv("BLAKE2F_INPUT"))
	require.NoError(t, os.Unsetenv("BLAKE2F_ROWS"))
	_, errOut, code = runCLI(t, "compress")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, errNoInput.Error())

	out, errOut, code := runCLI(t, "compress", "--verify=false", vectorInput)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, vectorOutput+"\n", out)
}

func TestAppsDoNotShareFlags(t *testing.T) {
	var buf bytes.Buffer
	a, b := newApp(&buf, &buf), newApp(&buf, &buf)
	for i := range a.Flags {
		require.NotSame(t, a.Flags[i], b.Flags[i])
	}
	for i := range a.Commands {
		require.NotSame(t, a.Commands[i], b.Commands[i])
	}
}

func TestCompressErrors(t *testing.T) {
	_, errOut, code := runCLI(t, "compress")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, errNoInput.Error())

	_, errOut, code = runCLI(t, "compress", "zz")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "decode input")

	_, errOut, code = runCLI(t, "--rows", "2048", "compress", vectorInput)
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "not enough rows")

	_, errOut, code = runCLI(t, "--log.level", "loud", "compress", vectorInput)
	require.Equal(t, 1, code)
	require.NotEmpty(t, errOut)
}

func TestBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inputs.txt")
	lines := "# two copies of the EIP-152 vector\n" + vectorInput + "\n\n" + vectorInput + "\n"
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o600))

	out, errOut, code := runCLI(t, "batch", "--parallel", "2", path)
	require.Equal(t, 0, code, errOut)
	require.Equal(t, vectorOutput+"\n"+vectorOutput+"\n", out)
}

func TestReadInputsErrors(t *testing.T) {
	_, err := readInputs(strings.NewReader("# nothing\n\n"))
	require.ErrorIs(t, err, errNoInput)

	_, err = readInputs(strings.NewReader(vectorInput + "\nabcd\n"))
	require.ErrorIs(t, err, precompile.ErrInputLength)
	require.Contains(t, err.Error(), "line 2")
}

func TestShape(t *testing.T) {
	out, errOut, code := runCLI(t, "shape")
	require.Equal(t, 0, code, errOut)
	require.Contains(t, out, "advice       9")
	require.Contains(t, out, "lookups      5")
	require.Contains(t, out, "gate decompose")
}

func TestServeMux(t *testing.T) {
	srv := httptest.NewServer(newServeMux(precompile.New()))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/blake2f", "text/plain", strings.NewReader(vectorInput))
	require.NoError(t, err)
	body := new(bytes.Buffer)
	_, err = body.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, body.String())
	require.Equal(t, vectorOutput+"\n", body.String())

	resp, err = http.Get(srv.URL + "/blake2f")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	tooMany := "0000000d" + vectorInput[8:]
	resp, err = http.Post(srv.URL+"/blake2f", "text/plain", strings.NewReader(tooMany))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body.Reset()
	_, err = body.ReadFrom(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Contains(t, body.String(), "blake2f_precompile_blake2f_calls")
}
