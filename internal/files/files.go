package files

import (
	"archive/zip"
	"bufio"
	"fmt"
	"image"
	_ "image/gif" // needed to decode gif
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // needed to decode webp
)

// jpegQuality matches the service's own re-encode quality, so cached files
// survive a rebuild byte-identical.
const jpegQuality = 90

const (
	thumbnailWidth  uint = 225
	thumbnailHeight uint = 300
)

func IsValidLocation(location string) error {
	if _, err := os.Stat(location); err != nil {
		return err
	}

	return nil
}

// EncodeImage writes img in the format named by suffix. Only formats the
// toolchain can encode are accepted; webp in particular is decode-only.
func EncodeImage(w io.Writer, img image.Image, suffix string) error {
	switch strings.ToLower(suffix) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case ".png":
		return png.Encode(w, img)
	default:
		return fmt.Errorf("unsupported image suffix: %s", suffix)
	}
}

// Thumbnail downscales a cover to list-thumbnail size, preserving aspect
// ratio by bounding the longer edge.
func Thumbnail(img image.Image) image.Image {
	if img.Bounds().Dy() > img.Bounds().Dx() {
		return resize.Resize(thumbnailWidth, 0, img, resize.Lanczos3)
	}

	return resize.Resize(0, thumbnailHeight, img, resize.Lanczos3)
}

// CreateCbzArchive creates a zip archive named cbzPath and adds all files from sourceDir to it
func CreateCbzArchive(sourceDir, cbzPath string) error {
	err := os.MkdirAll(filepath.Dir(cbzPath), os.ModePerm)
	if err != nil {
		return err
	}

	cbzFile, err := os.Create(cbzPath)
	if err != nil {
		return err
	}
	defer cbzFile.Close()

	writeBuf := bufio.NewWriter(cbzFile)
	defer writeBuf.Flush()

	zipWriter := zip.NewWriter(writeBuf)
	defer zipWriter.Close()

	return filepath.Walk(sourceDir, func(imgPath string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		return addFileToZip(zipWriter, imgPath, info.Name())
	})
}

// CreatePDF creates a pdf file named pdfPath and adds all files from sourceDir to it
func CreatePDF(sourceDir, pdfPath string) error {
	err := os.MkdirAll(filepath.Dir(pdfPath), os.ModePerm)
	if err != nil {
		return err
	}

	pdf := fpdf.New(fpdf.OrientationPortrait, fpdf.UnitMillimeter, "", "")

	walkErr := filepath.Walk(sourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() {
			pdfInfo := pdf.RegisterImageOptions(path, fpdf.ImageOptions{})
			imgWidth, imgHeight := pdfInfo.Extent()

			// each page takes the dimensions of its image, spreads included
			pdf.AddPageFormat(fpdf.OrientationPortrait, fpdf.SizeType{Wd: imgWidth, Ht: imgHeight})

			pdf.ImageOptions(path, 0, 0, imgWidth, imgHeight, false, fpdf.ImageOptions{}, 0, "")
		}

		return nil
	})
	if walkErr != nil {
		return walkErr
	}

	return pdf.OutputFileAndClose(pdfPath)
}

// addFileToZip adds a single file to the zip archive
func addFileToZip(zipWriter *zip.Writer, filePath, fileName string) error {
	fileToZip, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer fileToZip.Close()

	writer, err := zipWriter.Create(fileName)
	if err != nil {
		return err
	}

	readerBuf := bufio.NewReader(fileToZip)

	_, err = io.Copy(writer, readerBuf)
	return err
}
