package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"token-deploy-wizard/internal/domain"
)

var stepTitles = []string{"Basic info", "Metadata", "Review"}

func (m Model) View() string {
	if m.quit {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Token deploy wizard"))
	b.WriteString("\n")
	b.WriteString(m.renderSteps())
	b.WriteString("\n\n")

	switch m.snap.Step {
	case domain.StepBasicInfo, domain.StepMetadata:
		b.WriteString(panelStyle.Render(m.renderFields()))
	case domain.StepReview:
		b.WriteString(panelStyle.Render(m.renderReview()))
	}
	b.WriteString("\n")

	if status := m.renderDeployment(); status != "" {
		b.WriteString(status)
		b.WriteString("\n")
	}
	if m.notice != "" {
		b.WriteString(warningStyle.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render(m.helpLine()))
	return b.String()
}

func (m Model) renderSteps() string {
	parts := make([]string, len(stepTitles))
	for i, title := range stepTitles {
		label := title
		switch {
		case i == m.snap.Step.Index():
			parts[i] = stepActiveStyle.Render("● " + label)
		case i < m.snap.Step.Index():
			parts[i] = stepDoneStyle.Render("✓ " + label)
		default:
			parts[i] = stepPendingStyle.Render("○ " + label)
		}
	}
	return strings.Join(parts, helpStyle.Render("  ›  "))
}

func (m Model) renderFields() string {
	var lines []string
	for i, field := range stepFields[m.snap.Step] {
		label := labelStyle.Render(fieldLabels[field])
		value := m.inputs[field]
		if i == m.focus {
			label = focusedLabelStyle.Render(fieldLabels[field])
			value += "▏"
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, label, valueStyle.Render(value)))

		msg := m.fieldError(field)
		if field == fieldImagePath {
			msg = m.fieldError(domain.FieldImage)
			if img := m.snap.Draft.Metadata.ImageOrNil(); img != nil && msg == "" {
				lines = append(lines, labelStyle.Render("")+infoStyle.Render(img.Name+" ("+img.MimeType+")"))
			}
		}
		if msg != "" {
			lines = append(lines, labelStyle.Render("")+errorStyle.Render(msg))
		}
	}
	if m.snap.Step == domain.StepMetadata {
		p := m.snap.Preview
		switch {
		case p.Pending:
			lines = append(lines, helpStyle.Render("Reading preview..."))
		case p.Error != "":
			lines = append(lines, errorStyle.Render("Preview failed: "+p.Error))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderReview() string {
	d := m.snap.Draft
	rows := [][2]string{
		{"Name", d.Name},
		{"Symbol", d.Symbol},
		{"Decimals", strconv.Itoa(d.Decimals)},
		{"Initial supply", m.snap.FormattedSupply},
		{"Admin wallet", d.AdminWallet},
	}
	if d.Metadata.HasContent() {
		if img := d.Metadata.ImageOrNil(); img != nil {
			rows = append(rows, [2]string{"Image", img.Name})
		}
		if desc := d.Metadata.DescriptionOrEmpty(); desc != "" {
			rows = append(rows, [2]string{"Description", desc})
		}
	}

	var lines []string
	for _, r := range rows {
		lines = append(lines, labelStyle.Render(r[0])+valueStyle.Render(r[1]))
	}

	f := m.snap.Fees
	lines = append(lines, "",
		labelStyle.Render("Base fee")+valueStyle.Render(f.BaseFee.String()+" "+f.Unit),
		labelStyle.Render("Metadata fee")+valueStyle.Render(f.MetadataFee.String()+" "+f.Unit),
		labelStyle.Render("Total")+feeStyle.Render(f.TotalFee.String()+" "+f.Unit),
	)
	return strings.Join(lines, "\n")
}

func (m Model) renderDeployment() string {
	st := m.snap.Deployment
	switch st.State {
	case domain.DeploymentInFlight:
		return infoStyle.Render("Deploying...")
	case domain.DeploymentSucceeded:
		out := successStyle.Render("Deployed")
		if st.Result != nil {
			out += valueStyle.Render("  tx " + st.Result.TransactionID)
			if st.Result.ContractID != "" {
				out += valueStyle.Render("\ncontract " + st.Result.ContractID)
			}
		}
		return out
	case domain.DeploymentFailed:
		return errorStyle.Render("Deployment failed: " + st.Message)
	}
	return ""
}

func (m Model) helpLine() string {
	switch m.snap.Step {
	case domain.StepBasicInfo:
		return "tab/↓ next field • enter continue • ctrl+r reset • ctrl+c quit"
	case domain.StepMetadata:
		return "enter load image/continue • ctrl+x remove image • ctrl+s skip • esc back • ctrl+c quit"
	default:
		return "enter deploy • esc back • ctrl+r reset • ctrl+c quit"
	}
}
