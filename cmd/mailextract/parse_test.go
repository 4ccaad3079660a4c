package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"purchase_worker/core/domain"
	"purchase_worker/core/service/extraction"
)

const forwardBody = "Only the USB cam was for the team.\n\n" +
	"---------- Forwarded message ---------\n" +
	"From: REV Robotics <orders@revrobotics.com>\n" +
	"Subject: Your REV Robotics Order #123456\n\n" +
	"Thank you for your order!\nTotal: $156.99\n"

const mentorForward = "From: Mentor <mentor@example.com>\n" +
	"Subject: Fwd: Your REV Robotics Order #123456\n" +
	"Content-Type: text/plain\n\n" + forwardBody

func writeFixtures(t *testing.T) (dir string, files []string) {
	t.Helper()
	dir = t.TempDir()
	fixtures := map[string]string{
		"a_rev.eml":  mentorForward,
		"b_ups.json": `{"from":"mcinfo@ups.com","subject":"UPS Update","text":"Your package has shipped. Tracking Number: 1Z999AA10123456784"}`,
		"c_bad.json": `{`,
	}
	for _, name := range []string{"a_rev.eml", "b_ups.json", "c_bad.json"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(fixtures[name]), 0o600))
		files = append(files, path)
	}
	return dir, files
}

func TestParseFiles(t *testing.T) {
	_, files := writeFixtures(t)
	svc, err := newCLIService(false)
	require.NoError(t, err)

	results, err := parseFiles(context.Background(), svc, files, extraction.ProcessOptions{}, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, files[0], results[0].File)
	require.NotNil(t, results[0].Outcome)
	assert.Equal(t, "rev", results[0].Outcome.Parsed.Vendor)
	assert.True(t, results[0].Outcome.Forwarded)

	require.NotNil(t, results[1].Outcome)
	assert.Equal(t, domain.EmailTypeShippingNotification, results[1].Outcome.Parsed.Type)

	assert.Nil(t, results[2].Outcome)
	assert.NotEmpty(t, results[2].Error)
}

func TestWriteResults(t *testing.T) {
	results := []FileResult{{File: "a"}, {File: "b", Error: "boom"}}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, results, false))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"file":"b","error":"boom"}`, lines[1])

	buf.Reset()
	require.NoError(t, writeResults(&buf, results, true))
	var decoded []FileResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, results, decoded)
}

func TestUnwrapEmail(t *testing.T) {
	p := extraction.NewPipeline(nil)

	res := unwrapEmail(p, &domain.EmailContent{
		From:    "Mentor <mentor@example.com>",
		Subject: "Fwd: Your REV Robotics Order #123456",
		Text:    forwardBody,
	})
	assert.True(t, res.Forwarded)
	assert.Equal(t, "orders@revrobotics.com", res.Original.From)
	assert.Equal(t, "Only the USB cam was for the team.", res.Note)

	res = unwrapEmail(p, &domain.EmailContent{From: "orders@gobilda.com", Text: "hello"})
	assert.False(t, res.Forwarded)
}

func TestRootCommand_Wiring(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["parse"])
	assert.True(t, names["unwrap"])
	assert.NotNil(t, parseCmd.Flags().Lookup("concurrency"))
}
