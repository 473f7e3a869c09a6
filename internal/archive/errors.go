package archive

import (
	"errors"
	"net/http"

	"github.com/shaibs3/careportal/internal/apperror"
)

const CodeFolderNotEmpty = "FOLDER_NOT_EMPTY"

// ErrNodeNotFound is returned by a Store when no node matches
var ErrNodeNotFound = errors.New("archive node not found")

func errMissingName() error {
	return apperror.Validation("Missing name for folder/file")
}

func errMissingBlob() error {
	return apperror.Validation("No file uploaded or is_folder not set to 'true'")
}

func errParentNotFound() error {
	return apperror.Validation("Parent folder not found")
}

// errNotFound does not tell a missing node from someone else's
func errNotFound() error {
	return apperror.NotFound("Item not found or not yours")
}

func errFolderNotEmpty() error {
	return apperror.Conflict("Folder not empty", CodeFolderNotEmpty).WithStatus(http.StatusBadRequest)
}
