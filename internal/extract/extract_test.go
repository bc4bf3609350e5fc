package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_PlainText(t *testing.T) {
	text, err := Extract([]byte("第一章 绪论\n内容"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "第一章 绪论\n内容", text)
}

func TestExtract_UnsupportedType(t *testing.T) {
	_, err := Extract([]byte("data"), "slides.pptx")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.False(t, Supported("slides.pptx"))
	assert.True(t, Supported("Lecture.PDF"))
}

func TestExtract_CorruptFilesYieldEmptyText(t *testing.T) {
	for _, name := range []string{"broken.pdf", "broken.docx", "broken.ipynb"} {
		t.Run(name, func(t *testing.T) {
			text, err := Extract([]byte("definitely not a real document"), name)
			assert.NoError(t, err)
			assert.Empty(t, text)
		})
	}
}

func TestExtract_InvalidUTF8Text(t *testing.T) {
	text, err := Extract([]byte{0xff, 0xfe, 0x00}, "latin1.txt")
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_Docx(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Course </w:t></w:r><w:r><w:t>Overview</w:t></w:r></w:p>
    <w:p><w:r><w:t>Week</w:t><w:tab/><w:t>1</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Final exam</w:t></w:r></w:p>
  </w:body>
</w:document>`
	text, err := Extract(buildDocx(t, xml), "syllabus.docx")
	require.NoError(t, err)
	assert.Equal(t, "Course Overview\nWeek\t1\n\nFinal exam", text)
}

func TestExtract_DocxMissingBody(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text, err := Extract(buf.Bytes(), "empty.docx")
	assert.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_Notebook(t *testing.T) {
	nb := `{
  "cells": [
    {"cell_type": "markdown", "source": ["# Lab 1\n", "Load the data"]},
    {"cell_type": "code", "source": "import pandas as pd", "outputs": []},
    {"cell_type": "raw", "source": "ignored"}
  ],
  "nbformat": 4
}`
	text, err := Extract([]byte(nb), "lab1.ipynb")
	require.NoError(t, err)
	assert.Equal(t, "# Lab 1\nLoad the data\nimport pandas as pd", text)
}

func TestExtract_Markdown(t *testing.T) {
	md := "# Grading\n\nHomework is **40%** of the grade.\n\n- Midterm\n- Final\n\n```python\nprint('hi')\n```\n"
	text, err := Extract([]byte(md), "grading.md")
	require.NoError(t, err)

	assert.Contains(t, text, "Grading")
	assert.Contains(t, text, "Homework is 40% of the grade.")
	assert.Contains(t, text, "Midterm")
	assert.Contains(t, text, "print('hi')")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "```")
	assert.NotContains(t, text, "# ")
}

func TestExtract_HTML(t *testing.T) {
	html := `<html><head><title>t</title><style>p{}</style></head>
<body><h1>Office hours</h1><script>var x = 1;</script>
<p>Tuesday   14:00</p></body></html>`
	text, err := Extract([]byte(html), "hours.html")
	require.NoError(t, err)
	assert.Equal(t, "Office hours\nTuesday 14:00", text)
}

func TestExtensions(t *testing.T) {
	exts := Extensions()
	assert.Contains(t, exts, ".pdf")
	assert.Contains(t, exts, ".ipynb")
	assert.IsIncreasing(t, exts)
}
