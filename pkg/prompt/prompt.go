// Package prompt reads the YAML front matter of stored prompt files.
package prompt

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"sigs.k8s.io/yaml"
)

const maxDescriptionLength = 1024

var frontMatterDelim = []byte("---")

// Modes a prompt may ask the chat surface to run in.
var validModes = map[string]bool{"": true, "ask": true, "edit": true, "agent": true}

// Metadata is the front matter of a prompt file. Every field is optional.
type Metadata struct {
	Description string   `json:"description,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	Model       string   `json:"model,omitempty"`
	Tools       []string `json:"tools,omitempty"`
}

// Prompt is a parsed prompt file.
type Prompt struct {
	Metadata
	Body []byte
}

func Load(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading prompt %s", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing prompt %s", path)
	}
	return p, nil
}

// Parse splits data into front matter and body. A file that does not open
// with a "---" line has no front matter and is all body.
func Parse(data []byte) (*Prompt, error) {
	reader := bufio.NewReader(bytes.NewReader(data))

	first, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if !bytes.Equal(bytes.TrimSpace(first), frontMatterDelim) {
		return &Prompt{Body: data}, nil
	}

	yamlBuffer := bytes.Buffer{}
	closed := false
	for {
		line, err := reader.ReadBytes('\n')
		if bytes.Equal(bytes.TrimSpace(line), frontMatterDelim) {
			closed = true
			break
		}
		yamlBuffer.Write(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading front matter")
		}
	}
	if !closed {
		return nil, errors.New("front matter is missing its closing '---'")
	}

	p := &Prompt{}
	if err := yaml.Unmarshal(yamlBuffer.Bytes(), &p.Metadata); err != nil {
		return nil, errors.Wrap(err, "decoding front matter")
	}
	rest, _ := io.ReadAll(reader)
	p.Body = bytes.TrimLeft(rest, "\r\n")
	return p, nil
}

func (m Metadata) Validate() error {
	var err error
	if len(m.Description) > maxDescriptionLength {
		err = errors.CombineErrors(err, errors.Newf("description must be max %d characters", maxDescriptionLength))
	}
	if !validModes[m.Mode] {
		err = errors.CombineErrors(err, errors.Newf("mode %q must be one of ask, edit or agent", m.Mode))
	}
	for _, tool := range m.Tools {
		if tool == "" {
			err = errors.CombineErrors(err, errors.New("tool names must not be empty"))
			break
		}
	}
	return err
}
