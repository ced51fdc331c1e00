package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

func product(id int, name string, price int64, image, category, description string, rating float64, stock int) domain.ProductRecord {
	return domain.ProductRecord{
		ID:          id,
		Name:        name,
		Price:       decimal.NewFromInt(price),
		Image:       image,
		Category:    category,
		Description: description,
		Rating:      rating,
		Stock:       stock,
	}
}

const imageBase = "https://images.unsplash.com/"

func seedProducts() []domain.ProductRecord {
	return []domain.ProductRecord{
		// electronics
		product(1, "iPhone 15 Pro Max", 159900, imageBase+"photo-1695048133142-1a20484d2569?w=500", "electronics", "Latest flagship with titanium design and A17 Pro chip", 4.8, 25),
		product(2, "MacBook Air M3", 134900, imageBase+"photo-1517336714731-489689fd1ca8?w=500", "electronics", "Powerful, portable laptop with M3 chip", 4.9, 15),
		product(3, "iPad Pro 12.9-inch", 109900, imageBase+"photo-1544244015-0df4b3ffc6b0?w=500", "electronics", "Professional tablet with M2 chip and stunning display", 4.7, 20),
		product(4, "Samsung Galaxy S24 Ultra", 129999, imageBase+"photo-1610945415295-d9bbf067e59c?w=500", "electronics", "Flagship Android with S Pen and AI features", 4.6, 30),
		product(5, "Sony WH-1000XM5", 29990, imageBase+"photo-1618366712010-f4ae9c647dcb?w=500", "electronics", "Industry-leading noise cancellation headphones", 4.8, 40),
		product(6, "Dell XPS 15", 169999, imageBase+"photo-1593642632823-8f785ba67e45?w=500", "electronics", "Premium Windows laptop for creators", 4.7, 12),

		// fashion
		product(7, "Nike Air Max 270", 12995, imageBase+"photo-1542291026-7eec264c27ff?w=500", "fashion", "Iconic sneakers with Max Air cushioning", 4.5, 50),
		product(8, "Levi's 501 Original Jeans", 3999, imageBase+"photo-1542272604-787c3835535d?w=500", "fashion", "Classic straight fit denim jeans", 4.6, 60),
		product(9, "Ray-Ban Aviator Sunglasses", 8990, imageBase+"photo-1511499767150-a48a237f0083?w=500", "fashion", "Timeless style with UV protection", 4.8, 35),
		product(10, "Adidas Ultraboost 22", 16999, imageBase+"photo-1608231387042-66d1773070a5?w=500", "fashion", "Premium running shoes with Boost cushioning", 4.7, 45),

		// home
		product(11, "Smart LED TV 55-inch", 45999, imageBase+"photo-1593784991095-a205069470b6?w=500", "home", "4K Ultra HD Smart TV with HDR", 4.5, 18),
		product(12, "Coffee Maker Pro", 8999, imageBase+"photo-1517668808822-9ebb02f2a0e6?w=500", "home", "Programmable coffee maker with thermal carafe", 4.4, 25),
		product(13, "Robot Vacuum Cleaner", 24999, imageBase+"photo-1558317374-067fb5f30001?w=500", "home", "Smart vacuum with mapping and app control", 4.6, 15),
		product(14, "Air Purifier", 15999, imageBase+"photo-1585771724684-38269d6639fd?w=500", "home", "HEPA filter air purifier for large rooms", 4.7, 22),

		// sports
		product(15, "Yoga Mat Premium", 2499, imageBase+"photo-1601925260368-ae2f83cf8b7f?w=500", "sports", "Non-slip exercise mat with carrying strap", 4.5, 70),
		product(16, "Fitness Tracker Band", 4999, imageBase+"photo-1575311373937-040b8e1fd5b6?w=500", "sports", "Track steps, heart rate, and sleep", 4.3, 55),
		product(17, "Adjustable Dumbbells Set", 12999, imageBase+"photo-1517836357463-d25dfeac3438?w=500", "sports", "Space-saving adjustable weights 5-25kg", 4.6, 20),
		product(18, "Resistance Bands Set", 1499, imageBase+"photo-1598289431512-b97b0917affc?w=500", "sports", "5 resistance levels for full-body workout", 4.4, 80),

		// accessories
		product(19, "Apple Watch Series 9", 44900, imageBase+"photo-1546868871-7041f2a55e12?w=500", "accessories", "Advanced smartwatch with health tracking", 4.9, 30),
		product(20, "Leather Wallet", 1999, imageBase+"photo-1627123424574-724758594e93?w=500", "accessories", "Genuine leather bifold wallet with RFID", 4.5, 100),
		product(21, "Wireless Earbuds Pro", 9999, imageBase+"photo-1590658268037-6bf12165a8df?w=500", "accessories", "True wireless with active noise cancellation", 4.6, 45),
		product(22, "Power Bank 20000mAh", 2499, imageBase+"photo-1609091839311-d5365f9ff1c5?w=500", "accessories", "Fast charging portable battery pack", 4.4, 65),
		product(23, "Laptop Backpack", 3499, imageBase+"photo-1553062407-98eeb64c6a62?w=500", "accessories", "Water-resistant backpack with USB charging port", 4.5, 50),
		product(24, "Phone Case Premium", 1299, imageBase+"photo-1601784551446-20c9e07cdbdb?w=500", "accessories", "Military-grade drop protection case", 4.3, 120),
	}
}

func seedCategories() []domain.Category {
	return []domain.Category{
		{ID: domain.CategoryAll, Name: "All Products", Icon: "fa-th"},
		{ID: "electronics", Name: "Electronics", Icon: "fa-laptop"},
		{ID: "fashion", Name: "Fashion", Icon: "fa-tshirt"},
		{ID: "home", Name: "Home & Living", Icon: "fa-home"},
		{ID: "sports", Name: "Sports & Fitness", Icon: "fa-dumbbell"},
		{ID: "accessories", Name: "Accessories", Icon: "fa-bag-shopping"},
	}
}
