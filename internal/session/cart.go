package session

// AddItem appends a line to the cart, merging into an existing line when
// the item and note match. Quantities below one are coerced to one.
func (st *Store) AddItem(customerID string, item CartItem) Session {
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return st.Mutate(customerID, EventAdd, func(s *Session) {
		for i := range s.Cart {
			if s.Cart[i].CatalogID == item.CatalogID && s.Cart[i].Note == item.Note {
				s.Cart[i].Quantity += item.Quantity
				return
			}
		}
		s.Cart = append(s.Cart, item)
	})
}

// RemoveLast drops the most recently added cart line, if any.
func (st *Store) RemoveLast(customerID string) Session {
	return st.Mutate(customerID, EventRemove, func(s *Session) {
		if len(s.Cart) > 0 {
			s.Cart = s.Cart[:len(s.Cart)-1]
		}
	})
}

// SetQuantity updates the quantity of the cart line at index. A quantity
// of zero removes the line. Out-of-range indexes are ignored.
func (st *Store) SetQuantity(customerID string, index, quantity int) Session {
	return st.Mutate(customerID, EventQuantityChange, func(s *Session) {
		if index < 0 || index >= len(s.Cart) {
			return
		}
		if quantity <= 0 {
			s.Cart = append(s.Cart[:index], s.Cart[index+1:]...)
			return
		}
		s.Cart[index].Quantity = quantity
	})
}

// SetState moves the session to a new state.
func (st *Store) SetState(customerID string, state State) Session {
	return st.Mutate(customerID, EventStateChange, func(s *Session) {
		s.State = state
	})
}

// RecordInbound appends a customer message to the history.
func (st *Store) RecordInbound(customerID, text string) Session {
	return st.Mutate(customerID, EventMessage, func(s *Session) {
		s.History = append(s.History, MessageRecord{Direction: Inbound, Text: text, At: st.now()})
	})
}

// RecordOutbound appends a bot reply to the history.
func (st *Store) RecordOutbound(customerID, text string) Session {
	return st.Mutate(customerID, EventMessage, func(s *Session) {
		s.History = append(s.History, MessageRecord{Direction: Outbound, Text: text, At: st.now()})
	})
}
