package shared

// Permissions declared for RBAC.
const (
	// Quotation permissions
	PermQuotationView   = "sales.quotation.view"
	PermQuotationCreate = "sales.quotation.create"
	PermQuotationEdit   = "sales.quotation.edit"
	PermQuotationSend   = "sales.quotation.send"
	PermQuotationDelete = "sales.quotation.delete"

	// Customer permissions
	PermCustomerView = "sales.customer.view"

	// Product permissions
	PermProductView = "masterdata.product.view"

	// Inbound delivery permissions
	PermInboundView    = "inbound.delivery.view"
	PermInboundCreate  = "inbound.delivery.create"
	PermInboundEdit    = "inbound.delivery.edit"
	PermInboundConfirm = "inbound.delivery.confirm"
	PermInboundReceive = "inbound.delivery.receive"
	PermInboundCancel  = "inbound.delivery.cancel"

	// Purchase requisition permissions
	PermRequisitionView    = "procurement.requisition.view"
	PermRequisitionCreate  = "procurement.requisition.create"
	PermRequisitionEdit    = "procurement.requisition.edit"
	PermRequisitionSubmit  = "procurement.requisition.submit"
	PermRequisitionApprove = "procurement.requisition.approve"
)

// SalesScopes lists all permissions related to the sales module.
func SalesScopes() []string {
	return []string{
		PermQuotationView,
		PermQuotationCreate,
		PermQuotationEdit,
		PermQuotationSend,
		PermQuotationDelete,
		PermCustomerView,
	}
}

// InboundScopes lists all permissions related to inbound deliveries.
func InboundScopes() []string {
	return []string{
		PermInboundView,
		PermInboundCreate,
		PermInboundEdit,
		PermInboundConfirm,
		PermInboundReceive,
		PermInboundCancel,
	}
}

// ProcurementScopes lists all permissions related to purchase requisitions.
func ProcurementScopes() []string {
	return []string{
		PermRequisitionView,
		PermRequisitionCreate,
		PermRequisitionEdit,
		PermRequisitionSubmit,
		PermRequisitionApprove,
	}
}
