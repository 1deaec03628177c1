package portal

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"extportal/internal/config"
	"extportal/internal/domain"
	"extportal/internal/domain/services"
)

// cnpjPattern matches a bare Brazilian company tax id, digits only, no
// punctuation.
var cnpjPattern = regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d}$`, config.CNPJLength))

func validateTenantDraft(draft *services.TenantDraft) error {
	email := ""
	if draft.Email != nil {
		email = strings.TrimSpace(*draft.Email)
	}

	err := validation.Errors{
		"name": validation.Validate(draft.Name,
			validation.Required,
			validation.Length(1, config.MaxTenantNameLength),
		),
		"cnpj": validation.Validate(draft.CNPJ,
			validation.Required,
			validation.Match(cnpjPattern).Error(fmt.Sprintf("must be exactly %d digits", config.CNPJLength)),
		),
		"email": validation.Validate(email,
			validation.When(email != "", is.Email),
		),
		"password": validation.Validate(draft.Password,
			// A login email without a password cannot be provisioned.
			validation.When(email != "", validation.Required.Error("required when an email is set")),
		),
	}.Filter()

	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}

func validateFolderName(name string) error {
	err := validation.Validate(name,
		validation.Required.Error("folder name cannot be blank"),
		validation.Length(1, config.MaxFolderNameLength),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			if strings.ContainsAny(s, `/\`) {
				return validation.NewError("validation_folder_name", "folder name cannot contain slashes")
			}
			if strings.TrimSpace(s) == "" {
				return validation.NewError("validation_folder_name", "folder name cannot be blank")
			}
			return nil
		}),
	)

	if err != nil {
		return &domain.ValidationError{Message: "folder name: " + err.Error()}
	}
	return nil
}

func validateDocumentUpload(upload *services.DocumentUpload) error {
	err := validation.Errors{
		"file_name": validation.Validate(upload.FileName,
			validation.Required,
			validation.Length(1, config.MaxDocumentNameLength),
		),
		"data": validation.Validate(upload.Data,
			validation.Required.Error("file is empty"),
		),
	}.Filter()

	if err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	return nil
}
