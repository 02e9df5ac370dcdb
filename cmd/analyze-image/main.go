// Command analyze-image posts a local wound photo to a running service and
// prints the stored analysis.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marcelomcerri-bot/feridas/internal/httputil"
)

func main() {
	baseURL := flag.String("url", "http://localhost:5000", "Base URL of the wound assessment service")
	file := flag.String("file", "", "Path to the image to analyze")
	timeout := flag.Duration("timeout", 3*time.Minute, "Request timeout")
	flag.Parse()

	if *file == "" {
		flag.Usage()
		os.Exit(1)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := httputil.NewClient(httputil.ClientConfig{BaseURL: *baseURL, Timeout: *timeout})
	body, err := client.PostJSON(ctx, "/api/analyze-wound", map[string]string{
		"imageData": dataURL(*file, raw),
	})
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		log.Fatalf("decode response: %v", err)
	}
	fmt.Println(pretty.String())
}

// dataURL encodes raw as data:image/<subtype>;base64,... The subtype is
// sniffed from the content, then taken from the file extension, then jpeg.
func dataURL(path string, raw []byte) string {
	subtype := strings.TrimPrefix(http.DetectContentType(raw), "image/")
	if strings.Contains(subtype, "/") {
		subtype = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	}
	if subtype == "" || subtype == "jpg" {
		subtype = "jpeg"
	}
	return "data:image/" + subtype + ";base64," + base64.StdEncoding.EncodeToString(raw)
}
