// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package export

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/walteh/exportsrc/pkg/log"
)

const msbuildNamespace = "http://schemas.microsoft.com/developer/msbuild/2003"

// scmProperties bind a project to source control, as elements in msbuild
// projects and as root attributes in native projects
var scmProperties = []string{"SccProjectName", "SccLocalPath", "SccAuxPath", "SccProvider"}

// HintPathOutcome is what happened to one hint path
type HintPathOutcome int

const (
	// HintPathUnchanged leaves the value as written
	HintPathUnchanged HintPathOutcome = iota
	// HintPathResolved replaced the value with its absolute form
	HintPathResolved
)

func (o HintPathOutcome) String() string {
	switch o {
	case HintPathResolved:
		return "resolved"
	default:
		return "unchanged"
	}
}

// projectDocument is a parsed project file and what is needed to write it
// back the way it was read. charset is nil for UTF-8 documents.
type projectDocument struct {
	doc     *etree.Document
	bom     bool
	crlf    bool
	charset encoding.Encoding
}

// charsetReader decodes a document declared in a non UTF-8 encoding and
// remembers the encoding for the way back out
func (pd *projectDocument) charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, errors.Errorf("unknown encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, errors.Errorf("unsupported encoding %q", label)
	}
	pd.charset = enc
	return enc.NewDecoder().Reader(input), nil
}

func readProject(path string) (*projectDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading project %s: %w", path, err)
	}

	pd := &projectDocument{
		bom:  bytes.HasPrefix(data, bomUTF8),
		crlf: bytes.Contains(data, []byte("\r\n")),
	}
	data = bytes.TrimPrefix(data, bomUTF8)

	pd.doc = etree.NewDocument()
	pd.doc.WriteSettings.CanonicalAttrVal = true
	pd.doc.WriteSettings.CanonicalText = true
	pd.doc.ReadSettings.CharsetReader = pd.charsetReader
	if err := pd.doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if pd.doc.Root() == nil {
		return nil, errors.New("document has no root element")
	}
	return pd, nil
}

func (pd *projectDocument) encode() ([]byte, error) {
	out, err := pd.doc.WriteToBytes()
	if err != nil {
		return nil, errors.Errorf("serializing project: %w", err)
	}
	if pd.crlf {
		out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))
	}
	if pd.charset != nil {
		if out, err = pd.charset.NewEncoder().Bytes(out); err != nil {
			return nil, errors.Errorf("encoding project: %w", err)
		}
	}
	if pd.bom {
		out = append(append([]byte(nil), bomUTF8...), out...)
	}
	return out, nil
}

// removeElement detaches el along with the indentation in front of it
func removeElement(el *etree.Element) {
	parent := el.Parent()
	if parent == nil {
		return
	}
	i := el.Index()
	parent.RemoveChildAt(i)
	if i > 0 {
		if cd, ok := parent.Child[i-1].(*etree.CharData); ok && cd.IsWhitespace() {
			parent.RemoveChildAt(i - 1)
		}
	}
}

// msbuildElements returns every element named tag in the msbuild namespace
func msbuildElements(doc *etree.Document, tag string) []*etree.Element {
	var out []*etree.Element
	for _, el := range doc.FindElements(".//" + tag) {
		if el.NamespaceURI() == msbuildNamespace {
			out = append(out, el)
		}
	}
	return out
}

func msbuildChildren(el *etree.Element, tag string) []*etree.Element {
	var out []*etree.Element
	for _, c := range el.ChildElements() {
		if c.Tag == tag && c.NamespaceURI() == msbuildNamespace {
			out = append(out, c)
		}
	}
	return out
}

// 🏗️ copyProject rewrites an msbuild project. A document that does not parse
// is reported and copied opaquely.
func (p *pipeline) copyProject(src, dst string) error {
	pd, err := readProject(src)
	if err != nil {
		p.sink.Emit(log.DiagnosticEvent{Path: src, Message: "invalid project file, copying as is", Err: err})
		return p.copyBinary(src, dst)
	}

	if p.settings.RemoveSCMBinding {
		for _, name := range scmProperties {
			for _, el := range msbuildElements(pd.doc, name) {
				removeElement(el)
			}
		}
	}

	if p.settings.ConvertHintPaths {
		for _, el := range msbuildElements(pd.doc, "HintPath") {
			original := el.Text()
			value, outcome := resolveHintPath(p.source, original, p.systemDirs)
			if outcome == HintPathResolved {
				el.SetText(value)
			}
			p.sink.Emit(log.HintPathEvent{Project: src, Original: original, Value: value, Resolved: outcome == HintPathResolved})
		}
	}

	if p.settings.ReplaceLinkFiles {
		if err := p.replaceLinkFiles(pd.doc, filepath.Dir(src), filepath.Dir(dst)); err != nil {
			return err
		}
	}

	out, err := pd.encode()
	if err != nil {
		return errors.Errorf("%s: %w", src, err)
	}
	return p.writeOutput(dst, out)
}

// resolveHintPath makes a hint path absolute when it points outside the
// source root into one of the system directories. Anything else, including a
// value that cannot be resolved, is left as written.
func resolveHintPath(sourceRoot, value string, systemDirs []string) (string, HintPathOutcome) {
	v := strings.TrimSpace(value)
	if v == "" {
		return value, HintPathUnchanged
	}
	v = filepath.FromSlash(strings.ReplaceAll(v, `\`, "/"))

	resolved := v
	if !filepath.IsAbs(v) {
		resolved = filepath.Join(sourceRoot, v)
	}
	if isWithin(sourceRoot, resolved) {
		return value, HintPathUnchanged
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return value, HintPathUnchanged
	}
	for _, dir := range systemDirs {
		if dir != "" && isWithin(dir, abs) {
			return abs, HintPathResolved
		}
	}
	return value, HintPathUnchanged
}

// replaceLinkFiles copies each linked compile item next to the exported
// project and points the item at the copy
func (p *pipeline) replaceLinkFiles(doc *etree.Document, srcDir, dstDir string) error {
	root := doc.Root()
	if root.Tag != "Project" || root.NamespaceURI() != msbuildNamespace {
		return nil
	}

	for _, group := range msbuildChildren(root, "ItemGroup") {
		for _, item := range msbuildChildren(group, "Compile") {
			include := item.SelectAttr("Include")
			if include == nil {
				continue
			}
			links := msbuildChildren(item, "Link")
			if len(links) == 0 {
				continue
			}
			linkEl := links[0]
			target := linkEl.Text()

			copySrc := filepath.Join(srcDir, normalizeProjectPath(include.Value))
			copyDst := filepath.Join(dstDir, normalizeProjectPath(target))

			if _, err := os.Stat(copySrc); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					p.sink.Emit(log.DiagnosticEvent{Path: copySrc, Message: "linked file not found, keeping link", Err: err})
					continue
				}
				return errors.Errorf("checking linked file %s: %w", copySrc, err)
			}

			if err := p.copyFile(copySrc, copyDst); err != nil {
				return errors.Errorf("copying linked file %s: %w", copySrc, err)
			}

			removeElement(linkEl)
			item.CreateAttr("Include", target)
		}
	}
	return nil
}

// normalizeProjectPath turns a project relative path into an OS path
func normalizeProjectPath(v string) string {
	return filepath.FromSlash(strings.ReplaceAll(strings.TrimSpace(v), `\`, "/"))
}

// copyVCProject removes the source control attributes from the root of a
// native project
func (p *pipeline) copyVCProject(src, dst string) error {
	pd, err := readProject(src)
	if err != nil {
		p.sink.Emit(log.DiagnosticEvent{Path: src, Message: "invalid project file, copying as is", Err: err})
		return p.copyBinary(src, dst)
	}

	root := pd.doc.Root()
	for _, name := range scmProperties {
		root.RemoveAttr(name)
	}

	out, err := pd.encode()
	if err != nil {
		return errors.Errorf("%s: %w", src, err)
	}
	return p.writeOutput(dst, out)
}
