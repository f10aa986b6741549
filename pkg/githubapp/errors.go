package githubapp

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v71/github"

	"github.com/mscno/provisioner"
)

const service = "github"

// mapError converts a go-github error into the shared error taxonomy.
func mapError(resp *github.Response, err error) error {
	if err == nil {
		return nil
	}
	if resp == nil || resp.Response == nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", service, provisioner.ErrNotFound)
	}
	return &provisioner.RemoteError{Service: service, Status: resp.StatusCode, Body: errorMessage(err)}
}

// mapCreateError is mapError plus 422 as a conflict.
func mapCreateError(resp *github.Response, err error) error {
	if err != nil && resp != nil && resp.Response != nil && resp.StatusCode == http.StatusUnprocessableEntity {
		return fmt.Errorf("%s: %w: %s", service, provisioner.ErrConflict, errorMessage(err))
	}
	return mapError(resp, err)
}

func errorMessage(err error) string {
	var er *github.ErrorResponse
	if errors.As(err, &er) {
		if len(er.Errors) > 0 {
			return fmt.Sprintf("%s (%s)", er.Message, er.Errors[0].Message)
		}
		return er.Message
	}
	return err.Error()
}
