package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"document-qa/internal/models"
	apperrors "document-qa/internal/pkg/errors"
)

// Parser turns a list of document paths into pages
type Parser interface {
	LoadPages(paths []string) ([]models.Page, error)
}

type FileParser struct{}

func New() *FileParser {
	return &FileParser{}
}

func (p *FileParser) LoadPages(paths []string) ([]models.Page, error) {
	return LoadPages(paths)
}

var slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// SupportedExtensions lists the file extensions LoadDocument understands
var SupportedExtensions = []string{".pdf", ".docx", ".pptx", ".xlsx", ".xlsm", ".xltx", ".xltm", ".txt", ".md", ".markdown"}

// LoadPages loads every document in order. The first failing path aborts
// the load with a LoadError naming that path.
func LoadPages(paths []string) ([]models.Page, error) {
	if len(paths) == 0 {
		return nil, errors.New("no documents configured")
	}
	var pages []models.Page
	for _, path := range paths {
		docPages, err := LoadDocument(path)
		if err != nil {
			return nil, err
		}
		pages = append(pages, docPages...)
	}
	return pages, nil
}

// LoadDocument extracts the pages of a single file
func LoadDocument(filePath string) ([]models.Page, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, apperrors.NewLoadError(filePath, err)
	}
	if stat.IsDir() {
		return nil, apperrors.NewLoadError(filePath, errors.New("is a directory"))
	}

	var texts []string
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		texts, err = parsePDF(filePath)
	case ".docx":
		texts, err = parseDOCX(filePath)
	case ".pptx":
		texts, err = parsePPTX(filePath)
	case ".xlsx":
		texts, err = parseXLSX(filePath)
	case ".xlsm", ".xltx", ".xltm":
		texts, err = parseExcelize(filePath)
	case ".txt":
		texts, err = parseText(filePath)
	case ".md", ".markdown":
		texts, err = parseMarkdown(filePath)
	default:
		err = fmt.Errorf("%w: %q", apperrors.ErrUnsupported, ext)
	}
	if err != nil {
		return nil, apperrors.NewLoadError(filePath, err)
	}

	pages := make([]models.Page, 0, len(texts))
	for i, t := range texts {
		pages = append(pages, models.Page{
			Content:        strings.TrimSpace(t),
			PageNumber:     i + 1,
			SourceFilename: filePath,
		})
	}
	log.Info().Str("path", filePath).Int("pages", len(pages)).Msg("Loaded document")
	return pages, nil
}

func parsePDF(filePath string) (pages []string, err error) {
	// the pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("corrupt pdf: %v", r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	return pages, nil
}

func parseDOCX(filePath string) ([]string, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// GetContent returns the raw document.xml, DOCX has no page numbers
	content, err := extractTextFromXML(r.Editable().GetContent())
	if err != nil {
		return nil, err
	}
	return []string{content}, nil
}

func parsePPTX(filePath string) ([]string, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	type slide struct {
		num  int
		file *zip.File
	}
	var slides []slide
	for _, file := range f.File {
		m := slideRe.FindStringSubmatch(file.Name)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		slides = append(slides, slide{num: num, file: file})
	}
	if len(slides) == 0 {
		return nil, errors.New("no slides found")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	pages := make([]string, 0, len(slides))
	for _, s := range slides {
		rc, err := s.file.Open()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		slideText, err := extractTextFromXML(string(data))
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", s.num, err)
		}
		pages = append(pages, slideText)
	}
	return pages, nil
}

func parseXLSX(filePath string) ([]string, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []string
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			if row == nil {
				continue
			}
			var cells []string
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		pages = append(pages, sheetText(sheet.Name, rows))
	}
	return pages, nil
}

// parseExcelize handles the workbook flavours tealeg/xlsx does not open
func parseExcelize(filePath string) ([]string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []string
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", sheetName, err)
		}
		pages = append(pages, sheetText(sheetName, rows))
	}
	return pages, nil
}

func sheetText(name string, rows [][]string) string {
	var text strings.Builder
	text.WriteString(fmt.Sprintf("## Sheet: %s\n", name))
	for _, row := range rows {
		text.WriteString(strings.Join(row, "\t"))
		text.WriteString("\n")
	}
	return text.String()
}

func parseText(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return []string{string(data)}, nil
}

func parseMarkdown(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return []string{markdownToText(data)}, nil
}

// markdownToText keeps the readable text of a markdown document, one line per block
func markdownToText(source []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var blocks []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := extractText(node, source); txt != "" {
			blocks = append(blocks, txt)
		}
	}
	return strings.Join(blocks, "\n")
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if node != n && node.Type() == ast.TypeBlock {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.String:
			sb.Write(v.Value)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(collapseBlankLines(sb.String()))
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// extractTextFromXML collects the text runs (<w:t>, <a:t>) of an office XML
// part, ending each paragraph (<w:p>, <a:p>) with a newline.
func extractTextFromXML(xmlContent string) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader([]byte(xmlContent)))
	var out strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("malformed xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				out.WriteString("\n")
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return strings.TrimSpace(out.String()), nil
}
