package service

import (
	"bytes"
	"fmt"
	"strings"

	"chrisshop/internal/models"
	"chrisshop/internal/util"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// TicketService renders a finalized order as a printable PDF ticket. It only
// consumes what checkout produced; totals are recomputed from the snapshot
// prices, never from the live catalog.
type TicketService struct{}

// NewTicketService creates a new ticket service
func NewTicketService() *TicketService {
	return &TicketService{}
}

// Render produces the PDF ticket for an order
func (s *TicketService) Render(order *models.Order, lines []models.OrderLine, user *models.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "ChrisShop - Ticket de Compra", "", 1, "C", false, 0, "")
	s.rule(pdf)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Numero de Orden: #%d", order.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Fecha: %s", order.CreatedAt.Format("02/01/2006")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Hora: %s", order.CreatedAt.Format("15:04:05")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Cliente: %s", user.Name), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Email: %s", user.Email), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Estado: %s", strings.ToUpper(string(order.Status))), "", 1, "L", false, 0, "")
	if user.Phone != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Telefono: %s", user.Phone), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	pdf.CellFormat(0, 7, fmt.Sprintf("Metodo de pago: %s", strings.ToUpper(order.PaymentMethod)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, fmt.Sprintf("Tipo de entrega: %s", strings.ToUpper(order.DeliveryType)), "", 1, "L", false, 0, "")
	if order.DeliveryAddress != "" {
		pdf.CellFormat(0, 7, "Direccion de entrega:", "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, "    "+order.DeliveryAddress, "", 1, "L", false, 0, "")
	}
	s.rule(pdf)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "PRODUCTOS", "B", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 11)
	subtotal := decimal.Zero
	for _, line := range lines {
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)

		pdf.CellFormat(100, 7, line.ProductName, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("Cantidad: %d", line.Quantity), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, "$"+lineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	s.rule(pdf)

	tax := subtotal.Mul(taxRate)
	total := subtotal.Add(tax)

	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, "Subtotal: $"+subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 7, "IVA (16%): $"+tax.Round(2).StringFixed(2), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "TOTAL: $"+total.Round(2).StringFixed(2), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Gracias por tu compra!", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "ChrisShop - Tu tienda gamer de confianza", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "www.chrisshop.com | contacto@chrisshop.com", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket: %w", err)
	}

	util.TicketsRenderedTotal.Inc()
	return buf.Bytes(), nil
}

func (s *TicketService) rule(pdf *gofpdf.Fpdf) {
	pdf.Ln(2)
	x, y := pdf.GetXY()
	pdf.Line(10, y, 200, y)
	pdf.SetXY(x, y+3)
}
