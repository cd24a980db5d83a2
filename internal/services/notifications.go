package services

import (
	"fmt"

	"vendora_back_end/internal/models"
	"vendora_back_end/internal/notify"
	"vendora_back_end/internal/utils"
)

func statusEmailSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "✅ Paiement confirmé - Vendora"
	case models.OrderShipped:
		return "📦 Votre commande a été expédiée - Vendora"
	case models.OrderDelivered:
		return "🎉 Votre commande a été livrée - Vendora"
	case models.OrderCancelled:
		return "❌ Commande annulée - Vendora"
	case models.OrderRefunded:
		return "💰 Remboursement effectué - Vendora"
	case models.OrderDisputed:
		return "⚠️ Litige ouvert sur votre commande - Vendora"
	case models.OrderReturnRequested:
		return "↩️ Demande de retour enregistrée - Vendora"
	case models.OrderReturned:
		return "↩️ Retour accepté et remboursé - Vendora"
	default:
		return "📋 Mise à jour de votre commande - Vendora"
	}
}

func statusEmailMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderPaid:
		return "Votre paiement a bien été reçu. Le vendeur prépare votre commande."
	case models.OrderShipped:
		return "Votre commande est en route."
	case models.OrderDelivered:
		return "Votre commande a été livrée. Bon shopping sur Vendora !"
	case models.OrderCancelled:
		return "Votre commande a été annulée."
	case models.OrderRefunded:
		return "Votre commande a été remboursée. Les fonds reviendront sous quelques jours."
	case models.OrderDisputed:
		return "Un litige a été ouvert. Le reversement des fonds au vendeur est suspendu."
	case models.OrderReturnRequested:
		return "Votre demande de retour a bien été enregistrée, elle sera examinée sous peu."
	case models.OrderReturned:
		return "Votre retour a été accepté et le remboursement effectué."
	default:
		return "Le statut de votre commande a changé."
	}
}

// buyerStatusNotification construit la notification acheteur pour une transition
func buyerStatusNotification(order *models.Order, status models.OrderStatus) notify.Message {
	return notify.Message{
		To:      order.BuyerID,
		Subject: statusEmailSubject(status),
		Body:    utils.StatusEmailHTML(order.ID.String(), statusEmailSubject(status), statusEmailMessage(status)),
	}
}

// SellerReleaseNotification — « fonds reversés » à destination du vendeur
func SellerReleaseNotification(order *models.Order, amount string) notify.Message {
	title := "💸 Fonds reversés - Vendora"
	message := fmt.Sprintf("La période de garde est terminée : %s vous ont été reversés.", amount)
	return notify.Message{
		To:      order.SellerID,
		Subject: title,
		Body:    utils.StatusEmailHTML(order.ID.String(), title, message),
	}
}
