package ui

import (
	"github.com/marcus/sheetnotes/internal/modal"
)

// Modal widths used across the app.
const (
	ModalWidthSmall  = 40
	ModalWidthMedium = 50
	ModalWidthLarge  = 70
)

// ConfirmDialog describes a yes/no modal. Confirm yields "confirm" and
// cancel yields "cancel".
type ConfirmDialog struct {
	Title        string
	Message      string
	ConfirmLabel string
	CancelLabel  string
	Variant      modal.Variant
	Width        int
}

// NewConfirmDialog returns a dialog with default labels.
func NewConfirmDialog(title, message string) *ConfirmDialog {
	return &ConfirmDialog{
		Title:        title,
		Message:      message,
		ConfirmLabel: " Confirm ",
		CancelLabel:  " Cancel ",
		Variant:      modal.VariantDefault,
		Width:        ModalWidthMedium,
	}
}

// ToModal builds the modal. Danger dialogs get a danger confirm button.
func (d *ConfirmDialog) ToModal() *modal.Modal {
	var btnOpts []modal.BtnOption
	if d.Variant == modal.VariantDanger {
		btnOpts = append(btnOpts, modal.BtnDanger())
	}
	return modal.New(d.Title,
		modal.WithWidth(d.Width),
		modal.WithVariant(d.Variant),
		modal.WithPrimaryAction("confirm"),
		modal.WithHints(false),
	).
		AddSection(modal.Text(d.Message)).
		AddSection(modal.Spacer()).
		AddSection(modal.Buttons(
			modal.Btn(d.ConfirmLabel, "confirm", btnOpts...),
			modal.Btn(d.CancelLabel, "cancel"),
		))
}
