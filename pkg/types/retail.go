package types

// Product is a catalogue product from the retail customer graph.
type Product struct {
	ProductCode int64   `json:"productCode" mapstructure:"productCode"`
	Name        string  `json:"name" mapstructure:"name"`
	Description string  `json:"description,omitempty" mapstructure:"description"`
	Text        string  `json:"text,omitempty" mapstructure:"text"`
	URL         string  `json:"url,omitempty" mapstructure:"url"`
	Score       float64 `json:"score,omitempty" mapstructure:"score"`
}

// SupplierOrders counts orders and refunds for one supplier of a product.
type SupplierOrders struct {
	SupplierID      int64  `json:"supplierId" mapstructure:"supplierId"`
	Name            string `json:"name" mapstructure:"name"`
	NumberOfOrders  int64  `json:"numberOfOrders" mapstructure:"numberOfOrders"`
	NumberOfRefunds int64  `json:"numberOfRefunds" mapstructure:"numberOfRefunds"`
}

// ProductInfo aggregates order and return statistics for a product.
type ProductInfo struct {
	ProductCode   int64            `json:"productCode" mapstructure:"productCode"`
	TotalOrders   int64            `json:"totalOrders" mapstructure:"totalOrders"`
	TotalReturns  int64            `json:"totalReturns" mapstructure:"totalReturns"`
	SupplierInfos []SupplierOrders `json:"supplierInfos" mapstructure:"supplierInfos"`
}

// ProductOrders counts orders and refunds for one product of a supplier.
type ProductOrders struct {
	ProductCode     int64  `json:"productCode" mapstructure:"productCode"`
	Name            string `json:"name" mapstructure:"name"`
	NumberOfOrders  int64  `json:"numberOfOrders" mapstructure:"numberOfOrders"`
	NumberOfRefunds int64  `json:"numberOfRefunds" mapstructure:"numberOfRefunds"`
}

// SupplierInfo aggregates order and return statistics for a supplier.
type SupplierInfo struct {
	SupplierID   int64           `json:"supplierId" mapstructure:"supplierId"`
	TotalOrders  int64           `json:"totalOrders" mapstructure:"totalOrders"`
	TotalReturns int64           `json:"totalReturns" mapstructure:"totalReturns"`
	ProductInfos []ProductOrders `json:"productInfos" mapstructure:"supplierInfos"`
}

// CustomerSegment is a community of customers with similar purchases.
type CustomerSegment struct {
	SegmentID         int64 `json:"segmentId" mapstructure:"segmentId"`
	NumberOfCustomers int64 `json:"numberOfCustomers" mapstructure:"numberOfCustomers"`
}
