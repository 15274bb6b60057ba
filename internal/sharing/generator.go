package sharing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// accessKeyBytes gives 128 bits of entropy per key.
const accessKeyBytes = 16

// Generator derives capability URLs for shared notes. Whoever holds the
// access key can read the note once it is due, no login required.
type Generator struct {
	baseURL string
}

func NewGenerator(baseURL string) *Generator {
	return &Generator{baseURL: strings.TrimRight(baseURL, "/")}
}

func (g *Generator) NewKey() (string, error) {
	buf := make([]byte, accessKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (g *Generator) URL(noteID int64, accessKey string) string {
	return fmt.Sprintf("%s/shared/%d/%s", g.baseURL, noteID, accessKey)
}
