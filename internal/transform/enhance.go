package transform

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/bianoble/assetspkg/internal/digest"
	"github.com/bianoble/assetspkg/internal/sandbox"
)

// MaxEmbedSize is the largest asset inlined as a data URI.
const MaxEmbedSize = 32 * 1024

// MaxHostRange is the largest number of hosts one [lo-hi] range may expand to.
const MaxHostRange = 64

// embedMarker is the query parameter that asks for an asset to be inlined.
const embedMarker = "embed"

var urlPattern = regexp.MustCompile(`url\(\s*(?:'([^']*)'|"([^"]*)"|([^'")\s]*))\s*\)`)

var embedTypes = map[string]string{
	".png":   "image/png",
	".gif":   "image/gif",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".svg":   "image/svg+xml",
	".webp":  "image/webp",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".eot":   "application/vnd.ms-fontobject",
}

// StyleEnhancer is the default Enhancer. Root-relative URLs are resolved
// under RootPath; eligible assets are inlined in the embedded view and
// every other local reference is rewritten with a cache stamp and an
// optional asset host.
type StyleEnhancer struct{}

// asset is what the enhancer learned about one referenced file.
type asset struct {
	local   string
	info    fs.FileInfo
	dataURI string // set once computed
	stamped string // rewritten URL path, set once computed
}

// Enhance implements Enhancer.
func (e *StyleEnhancer) Enhance(css []byte, opts EnhanceOptions) (*EnhancedStyles, error) {
	hosts, err := ExpandHosts(opts.AssetHosts)
	if err != nil {
		return nil, err
	}

	run := &enhanceRun{opts: opts, assets: make(map[string]*asset)}
	embedded := &viewWriter{hosts: hosts, embed: true}
	var plain *viewWriter
	if opts.NoEmbedVersion {
		plain = &viewWriter{hosts: hosts}
	}

	last := 0
	for _, m := range urlPattern.FindAllSubmatchIndex(css, -1) {
		embedded.buf.Write(css[last:m[0]])
		if plain != nil {
			plain.buf.Write(css[last:m[0]])
		}
		last = m[1]

		raw, quote := matchedURL(css, m)
		if err := run.rewrite(embedded, raw, quote); err != nil {
			return nil, err
		}
		if plain != nil {
			if err := run.rewrite(plain, raw, quote); err != nil {
				return nil, err
			}
		}
	}
	embedded.buf.Write(css[last:])
	if plain != nil {
		plain.buf.Write(css[last:])
	}

	out := &EnhancedStyles{Warnings: run.warnings}
	out.Embedded, err = finishView(embedded, opts.Pregzip)
	if err != nil {
		return nil, err
	}
	if plain != nil {
		out.NotEmbedded, err = finishView(plain, opts.Pregzip)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func matchedURL(css []byte, m []int) (string, string) {
	switch {
	case m[2] >= 0:
		return string(css[m[2]:m[3]]), "'"
	case m[4] >= 0:
		return string(css[m[4]:m[5]]), `"`
	default:
		return string(css[m[6]:m[7]]), ""
	}
}

func finishView(v *viewWriter, pregzip bool) (Variant, error) {
	plain := v.buf.Bytes()
	if plain == nil {
		plain = []byte{}
	}
	out := Variant{Plain: plain}
	if pregzip {
		compressed, err := Gzip(plain)
		if err != nil {
			return Variant{}, err
		}
		out.Compressed = compressed
	}
	return out, nil
}

type viewWriter struct {
	buf   bytes.Buffer
	hosts []string
	next  int
	embed bool
}

func (v *viewWriter) host() string {
	if len(v.hosts) == 0 {
		return ""
	}
	h := v.hosts[v.next%len(v.hosts)]
	v.next++
	return "//" + h
}

type enhanceRun struct {
	opts     EnhanceOptions
	assets   map[string]*asset
	warnings []string
}

func (r *enhanceRun) rewrite(v *viewWriter, raw, quote string) error {
	if isExternalURL(raw) || !strings.HasPrefix(raw, "/") {
		writeURL(&v.buf, raw, quote)
		return nil
	}

	urlPath, query := splitQuery(raw)
	wantEmbed, query := stripEmbedMarker(query)

	a, err := r.lookup(urlPath)
	if err != nil {
		return err
	}
	if a == nil {
		writeURL(&v.buf, raw, quote)
		return nil
	}

	if v.embed && (wantEmbed || r.opts.ForceEmbed) && embeddable(a) {
		uri, err := r.dataURI(a)
		if err != nil {
			return err
		}
		writeURL(&v.buf, uri, quote)
		return nil
	}

	stamped, err := r.stampedPath(urlPath, a)
	if err != nil {
		return err
	}
	target := v.host() + stamped
	if query != "" {
		if strings.Contains(target, "?") {
			target += "&" + query
		} else {
			target += "?" + query
		}
	}
	writeURL(&v.buf, target, quote)
	return nil
}

// lookup resolves a root-relative URL path. A missing file yields nil and
// a warning; the reference is left as written.
func (r *enhanceRun) lookup(urlPath string) (*asset, error) {
	if a, ok := r.assets[urlPath]; ok {
		return a, nil
	}

	local := filepath.Join(r.opts.RootPath, filepath.FromSlash(strings.TrimPrefix(urlPath, "/")))
	info, err := os.Stat(local)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
		r.warnings = append(r.warnings, fmt.Sprintf("asset %s not found at %s", urlPath, local))
		r.assets[urlPath] = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking asset %s: %w", local, err)
	}

	a := &asset{local: local, info: info}
	r.assets[urlPath] = a
	return a, nil
}

func (r *enhanceRun) dataURI(a *asset) (string, error) {
	if a.dataURI != "" {
		return a.dataURI, nil
	}
	data, err := os.ReadFile(a.local)
	if err != nil {
		return "", fmt.Errorf("reading asset %s: %w", a.local, err)
	}
	mimeType := embedTypes[strings.ToLower(filepath.Ext(a.local))]
	a.dataURI = "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return a.dataURI, nil
}

// stampedPath returns the URL path with its cache stamp. With crypted
// stamps the asset is copied beside itself as "<name>-<hash><ext>".
func (r *enhanceRun) stampedPath(urlPath string, a *asset) (string, error) {
	if a.stamped != "" {
		return a.stamped, nil
	}

	if !r.opts.CryptedStamp {
		a.stamped = urlPath + "?" + strconv.FormatInt(a.info.ModTime().Unix(), 10)
		return a.stamped, nil
	}

	hash, err := digest.File(a.local)
	if err != nil {
		return "", err
	}
	ext := path.Ext(urlPath)
	a.stamped = strings.TrimSuffix(urlPath, ext) + "-" + hash + ext

	copyPath := filepath.Join(filepath.Dir(a.local), filepath.Base(filepath.FromSlash(a.stamped)))
	if _, err := os.Stat(copyPath); err == nil {
		return a.stamped, nil
	}
	data, err := os.ReadFile(a.local)
	if err != nil {
		return "", fmt.Errorf("reading asset %s: %w", a.local, err)
	}
	if err := sandbox.SafeWrite(r.opts.RootPath, copyPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing stamped asset %s: %w", copyPath, err)
	}
	return a.stamped, nil
}

func embeddable(a *asset) bool {
	if a.info.Size() > MaxEmbedSize {
		return false
	}
	_, ok := embedTypes[strings.ToLower(filepath.Ext(a.local))]
	return ok
}

func isExternalURL(raw string) bool {
	lower := strings.ToLower(raw)
	return raw == "" ||
		strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(raw, "//") ||
		strings.HasPrefix(raw, "#") ||
		strings.Contains(raw, "://")
}

func splitQuery(raw string) (string, string) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i], raw[i+1:]
	}
	return raw, ""
}

// stripEmbedMarker removes the embed parameter from a query string and
// reports whether it was present.
func stripEmbedMarker(query string) (bool, string) {
	if query == "" {
		return false, ""
	}
	found := false
	kept := make([]string, 0, 2)
	for _, part := range strings.Split(query, "&") {
		if part == embedMarker {
			found = true
			continue
		}
		if part != "" {
			kept = append(kept, part)
		}
	}
	return found, strings.Join(kept, "&")
}

func writeURL(buf *bytes.Buffer, u, quote string) {
	buf.WriteString("url(")
	buf.WriteString(quote)
	buf.WriteString(u)
	buf.WriteString(quote)
	buf.WriteString(")")
}

// ExpandHosts expands an asset host pattern into the host rotation.
// "assets[0-2].example.com" gives assets0, assets1 and assets2;
// "[a,b].example.com" gives a and b; several patterns may be comma
// separated outside brackets. An empty pattern gives no hosts.
func ExpandHosts(pattern string) ([]string, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return nil, nil
	}

	var hosts []string
	for _, p := range splitOutsideBrackets(pattern) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		open := strings.IndexByte(p, '[')
		if open < 0 {
			hosts = append(hosts, p)
			continue
		}
		closing := strings.IndexByte(p[open:], ']')
		if closing < 0 {
			return nil, fmt.Errorf("asset hosts %q: unterminated '['", pattern)
		}
		closing += open
		choices, err := expandChoices(p[open+1 : closing])
		if err != nil {
			return nil, fmt.Errorf("asset hosts %q: %w", pattern, err)
		}
		for _, c := range choices {
			hosts = append(hosts, p[:open]+c+p[closing+1:])
		}
	}
	return hosts, nil
}

func splitOutsideBrackets(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func expandChoices(body string) ([]string, error) {
	if lo, hi, ok := strings.Cut(body, "-"); ok && !strings.Contains(body, ",") {
		from, err1 := strconv.Atoi(strings.TrimSpace(lo))
		to, err2 := strconv.Atoi(strings.TrimSpace(hi))
		if err1 != nil || err2 != nil || from < 0 || from > to {
			return nil, fmt.Errorf("invalid range [%s]", body)
		}
		if to-from >= MaxHostRange {
			return nil, fmt.Errorf("range [%s] expands to more than %d hosts", body, MaxHostRange)
		}
		out := make([]string, 0, to-from+1)
		for i := from; i <= to; i++ {
			out = append(out, strconv.Itoa(i))
		}
		return out, nil
	}
	var out []string
	for _, c := range strings.Split(body, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty choice list []")
	}
	return out, nil
}
