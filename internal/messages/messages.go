// Package messages resolves reply texts by key.
//
// Lookup is tiered: a live store (SQLite, editable by the operator at
// runtime) is consulted first, then a compiled-in fallback table, and as
// a last resort a visible placeholder so a missing key never turns into
// a silently dropped reply. Every result is tagged with the tier that
// produced it.
package messages

// Message keys. The fallback table must cover every key declared here.
const (
	KeyGreeting           = "greeting"
	KeyHelp               = "help"
	KeyUnknown            = "unknown"
	KeyInvalidOption      = "invalid_option"
	KeyCartEmpty          = "cart_empty"
	KeyCanceled           = "canceled"
	KeyRemoved            = "removed"
	KeyRestarted          = "restarted"
	KeyBeverageMenuHeader = "beverage_menu_header"
	KeyBeverageQuantity   = "beverage_quantity"
	KeyAdditionalQuantity = "additional_quantity"
	KeyDeliveryOrPickup   = "delivery_or_pickup"
	KeyAskAddress         = "ask_address"
	KeyAddressQuote       = "address_quote"
	KeyAddressNotFound    = "address_not_found"
	KeyOutOfArea          = "out_of_area"
	KeySavedAddress       = "saved_address"
	KeyObservation        = "observation"
	KeyAskName            = "ask_name"
	KeyPaymentMenu        = "payment_menu"
	KeyAskChange          = "ask_change"
	KeyChangeTooSmall     = "change_too_small"
	KeyChangeInvalid      = "change_invalid"
	KeyPix                = "pix"
	KeyOrderPlaced        = "order_placed"
	KeyPickupPlaced       = "pickup_placed"
	KeyAlreadyFinalized   = "already_finalized"
	KeyOutForDelivery     = "out_for_delivery"
	KeySupport            = "support"
	KeyFollowup           = "followup"
)

// fallback is the compiled-in text for every key. Texts with verbs like
// %s or %.2f are templates; callers fill them with fmt.Sprintf.
var fallback = map[string]string{
	KeyGreeting: "Olá! 🍔 Bem-vindo ao *Brutus Burger*!\n\n" +
		"Pode mandar seu pedido por mensagem, por exemplo: *1 dallas sem cebola e 2 coca lata*.\n\n" +
		"Digite *cardápio* para ver o cardápio, *b* para bebidas, *f* para finalizar ou *comandos* para ver os comandos.",
	KeyHelp: "*COMANDOS:*\n" +
		"*cardápio* - ver o cardápio\n" +
		"*b* - menu de bebidas\n" +
		"*f* - finalizar o pedido\n" +
		"*c* - cancelar o último item\n" +
		"*reiniciar* - começar de novo\n" +
		"*pix* - chave pix\n" +
		"*...* - ver o carrinho\n" +
		"*ajuda* - falar com um atendente",
	KeyUnknown:            "Desculpe, não entendi. 😅 Digite *comandos* para ver os comandos.",
	KeyInvalidOption:      "Opção inválida. Responda com um dos números do menu.",
	KeyCartEmpty:          "Seu carrinho está vazio. Mande seu pedido por mensagem ou digite *cardápio*.",
	KeyCanceled:           "Último item removido do carrinho.",
	KeyRemoved:            "Item removido.",
	KeyRestarted:          "Tudo certo, começamos de novo! Pode mandar seu pedido.",
	KeyBeverageMenuHeader: "*BEBIDAS:*\nResponda com o número da bebida desejada, ou *v* para voltar.",
	KeyBeverageQuantity:   "Quantas unidades?",
	KeyAdditionalQuantity: "Quantas unidades do adicional?",
	KeyDeliveryOrPickup:   "Como você prefere?\n\n*1* - Entrega 🛵\n*2* - Retirada no balcão 🏪",
	KeyAskAddress:         "Me manda seu endereço (rua e número) ou sua localização. 📍",
	KeyAddressQuote:       "Encontrei: *%s*\nTaxa de entrega: *R$ %.2f*\n\nConfirma? (*s*im / *n*ão)",
	KeyAddressNotFound:    "Não encontrei esse endereço. 😕 Tenta mandar de novo com rua e número, ou envie sua localização.",
	KeyOutOfArea:          "Poxa, esse endereço fica fora da nossa área de entrega. 😞",
	KeySavedAddress:       "Entregamos no mesmo endereço da última vez?\n*%s*\n\n(*s*im / *n*ão)",
	KeyObservation:        "Alguma observação no pedido? Se não tiver, responda *n*.",
	KeyAskName:            "Qual o seu nome?",
	KeyPaymentMenu:        "*VALOR TOTAL: R$ %.2f*\n\nForma de pagamento:\n*1* - Dinheiro 💵\n*2* - Pix 📱\n*3* - Cartão 💳",
	KeyAskChange:          "Troco para quanto? Se não precisar de troco, responda *n*.",
	KeyChangeTooSmall:     "O valor informado é menor que o total do pedido (R$ %.2f). Escolha a forma de pagamento de novo.",
	KeyChangeInvalid:      "Não entendi o valor. Manda só o número, por exemplo *50*.",
	KeyPix:                "Nossa chave pix: *%s*\nAssim que cair o pagamento seu pedido entra na fila! 🍔",
	KeyOrderPlaced:        "*PEDIDO ANOTADO!* ✅\n\nJá estamos preparando. Te aviso quando sair para entrega! 🛵",
	KeyPickupPlaced:       "*PEDIDO ANOTADO!* ✅\n\nPode retirar no balcão em uns 30 minutos. 🏪",
	KeyAlreadyFinalized:   "Seu pedido já está na fila! Se precisar de algo, digite *ajuda* para falar com um atendente.",
	KeyOutForDelivery:     "Seu pedido saiu para entrega! 🛵💨",
	KeySupport:            "Um atendente vai te responder por aqui em instantes. 🧑‍🍳",
	KeyFollowup:           "Ainda está aí? 👀 Seu pedido está quase pronto para fechar, é só digitar *f* para finalizar!",
}

// Source tags which tier produced a text.
type Source int

const (
	SourceStore Source = iota
	SourceFallback
	SourcePlaceholder
)

func (s Source) String() string {
	switch s {
	case SourceStore:
		return "store"
	case SourceFallback:
		return "fallback"
	default:
		return "placeholder"
	}
}

// Result is a resolved message text and where it came from.
type Result struct {
	Text   string
	Source Source
}

// Fallback exposes the compiled-in table, mainly for seeding a live
// store with a starting point.
func Fallback() map[string]string {
	out := make(map[string]string, len(fallback))
	for k, v := range fallback {
		out[k] = v
	}
	return out
}
