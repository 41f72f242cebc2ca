package rules

const PageSize = 10

// Page clamps page into range and returns the slice bounds of that page along
// with the total page count. An empty list still has one page.
func Page(total, page, size int) (clamped, start, end, pages int) {
	if size <= 0 {
		size = PageSize
	}
	pages = (total + size - 1) / size
	if pages < 1 {
		pages = 1
	}
	clamped = page
	if clamped > pages-1 {
		clamped = pages - 1
	}
	if clamped < 0 {
		clamped = 0
	}
	start = clamped * size
	if start > total {
		start = total
	}
	end = start + size
	if end > total {
		end = total
	}
	return clamped, start, end, pages
}
