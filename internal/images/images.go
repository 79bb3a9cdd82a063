package images

import (
	"github.com/disintegration/imaging"
	"github.com/muesli/smartcrop"
	"github.com/muesli/smartcrop/nfnt"
)

const (
	CoverWidth  = 200
	CoverHeight = 260
)

// Fit crops a stored cover to its visually busiest 200x260 region and
// overwrites the file in place. The format is taken from the file extension.
func Fit(path string) error {
	img, err := imaging.Open(path)
	if err != nil {
		return err
	}
	analyzer := smartcrop.NewAnalyzer(nfnt.NewDefaultResizer())
	crop, err := analyzer.FindBestCrop(img, CoverWidth, CoverHeight)
	if err != nil {
		return err
	}
	cover := imaging.Resize(imaging.Crop(img, crop), CoverWidth, CoverHeight, imaging.Lanczos)
	return imaging.Save(cover, path)
}
